package store

import (
	"sync"
	"testing"

	"hostbridge/internal/model"
)

func TestGetBeforeFirstRefresh(t *testing.T) {
	s := New()
	if _, ok := s.Get(model.ModuleCPU); ok {
		t.Fatalf("expected no entry before first refresh")
	}
}

func TestSetReplacesWholeValue(t *testing.T) {
	s := New()
	s.Set(model.ModuleCPU, model.CPUData{Count: 4, Usage: 10})
	s.Set(model.ModuleCPU, model.CPUData{Count: 4, Usage: 55})

	got, ok := s.Get(model.ModuleCPU)
	if !ok {
		t.Fatalf("expected entry")
	}
	cpu, ok := got.(model.CPUData)
	if !ok {
		t.Fatalf("expected CPUData, got %T", got)
	}
	if cpu.Usage != 55 {
		t.Fatalf("expected latest value 55, got %v", cpu.Usage)
	}
}

func TestEntryCarriesUpdateTime(t *testing.T) {
	s := New()
	s.Set(model.ModuleMemory, model.MemoryData{Total: 1})
	e, ok := s.GetEntry(model.ModuleMemory)
	if !ok {
		t.Fatalf("expected entry")
	}
	if e.UpdatedAt.IsZero() {
		t.Fatalf("expected update time to be set")
	}
}

func TestPopulated(t *testing.T) {
	s := New()
	s.Set(model.ModuleCPU, model.CPUData{})
	s.Set(model.ModuleMemory, model.MemoryData{})

	mods := s.Populated()
	if len(mods) != 2 {
		t.Fatalf("expected 2 populated modules, got %d", len(mods))
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(model.ModuleCPU, model.CPUData{Count: n, Usage: float64(j)})
				if v, ok := s.Get(model.ModuleCPU); ok {
					if _, isCPU := v.(model.CPUData); !isCPU {
						t.Errorf("unexpected type %T", v)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
