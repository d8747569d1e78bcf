package provider

import (
	"context"
	"os/exec"
	"strings"

	"hostbridge/internal/model"
)

// Media reports the current player state via playerctl when available.
// Hosts without a player or without playerctl report Available=false.
type Media struct {
	binary string
}

func NewMedia() *Media { return &Media{binary: "playerctl"} }

func (p *Media) Refresh(ctx context.Context) (any, error) {
	path, err := exec.LookPath(p.binary)
	if err != nil {
		return model.MediaData{Available: false}, nil
	}

	status, err := playerctl(ctx, path, "status")
	if err != nil || status == "" {
		return model.MediaData{Available: false}, nil
	}

	data := model.MediaData{
		Available: true,
		Status:    strings.ToLower(status),
	}
	if title, err := playerctl(ctx, path, "metadata", "title"); err == nil {
		data.Title = title
	}
	if artist, err := playerctl(ctx, path, "metadata", "artist"); err == nil {
		data.Artist = artist
	}
	if album, err := playerctl(ctx, path, "metadata", "album"); err == nil {
		data.Album = album
	}
	return data, nil
}

func playerctl(ctx context.Context, path string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
