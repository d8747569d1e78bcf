// Package action holds the OS-level collaborators that execute pass-through
// commands. The protocol engine validates envelopes and delegates here; the
// side effects themselves are narrow, best-effort shell-outs.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

type Keyboard interface {
	PressKey(ctx context.Context, key string) error
	TypeText(ctx context.Context, text string) error
}

type Media interface {
	Control(ctx context.Context, action string, value *float64) error
}

type Power interface {
	Sleep(ctx context.Context) error
	Hibernate(ctx context.Context) error
	Restart(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Lock(ctx context.Context) error
	Logout(ctx context.Context) error
}

type Opener interface {
	OpenPath(ctx context.Context, path string) error
	OpenURL(ctx context.Context, url string) error
}

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Actions bundles the collaborators handed to the protocol engine.
type Actions struct {
	Keyboard Keyboard
	Media    Media
	Power    Power
	Opener   Opener
	Notifier Notifier
}

// NewLocal wires the exec-based implementations for the current host.
func NewLocal(logger *slog.Logger) *Actions {
	return &Actions{
		Keyboard: &localKeyboard{logger: logger},
		Media:    &localMedia{logger: logger},
		Power:    &localPower{logger: logger},
		Opener:   &localOpener{logger: logger},
		Notifier: &localNotifier{logger: logger},
	}
}

func runCommand(ctx context.Context, logger *slog.Logger, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not available: %w", name, err)
	}
	logger.Debug("running command", "command", name, "args", args)
	if out, err := exec.CommandContext(ctx, path, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, string(out))
	}
	return nil
}

type localKeyboard struct {
	logger *slog.Logger
}

func (k *localKeyboard) PressKey(ctx context.Context, key string) error {
	return runCommand(ctx, k.logger, "xdotool", "key", key)
}

func (k *localKeyboard) TypeText(ctx context.Context, text string) error {
	return runCommand(ctx, k.logger, "xdotool", "type", text)
}

type localMedia struct {
	logger *slog.Logger
}

func (m *localMedia) Control(ctx context.Context, action string, value *float64) error {
	switch action {
	case "play":
		return runCommand(ctx, m.logger, "playerctl", "play")
	case "pause":
		return runCommand(ctx, m.logger, "playerctl", "pause")
	case "stop":
		return runCommand(ctx, m.logger, "playerctl", "stop")
	case "previous":
		return runCommand(ctx, m.logger, "playerctl", "previous")
	case "next":
		return runCommand(ctx, m.logger, "playerctl", "next")
	case "seek":
		return runCommand(ctx, m.logger, "playerctl", "position", strconv.FormatFloat(*value, 'f', -1, 64))
	case "rewind":
		return runCommand(ctx, m.logger, "playerctl", "position", "10-")
	case "fastforward":
		return runCommand(ctx, m.logger, "playerctl", "position", "10+")
	case "shuffle":
		mode := "Off"
		if *value != 0 {
			mode = "On"
		}
		return runCommand(ctx, m.logger, "playerctl", "shuffle", mode)
	case "repeat":
		mode := "None"
		if *value != 0 {
			mode = "Playlist"
		}
		return runCommand(ctx, m.logger, "playerctl", "loop", mode)
	case "mute":
		return runCommand(ctx, m.logger, "playerctl", "volume", "0")
	case "volumedown":
		return runCommand(ctx, m.logger, "playerctl", "volume", "0.05-")
	case "volumeup":
		return runCommand(ctx, m.logger, "playerctl", "volume", "0.05+")
	}
	return fmt.Errorf("unsupported media action %q", action)
}

type localPower struct {
	logger *slog.Logger
}

func (p *localPower) Sleep(ctx context.Context) error {
	return runCommand(ctx, p.logger, "systemctl", "suspend")
}

func (p *localPower) Hibernate(ctx context.Context) error {
	return runCommand(ctx, p.logger, "systemctl", "hibernate")
}

func (p *localPower) Restart(ctx context.Context) error {
	return runCommand(ctx, p.logger, "systemctl", "reboot")
}

func (p *localPower) Shutdown(ctx context.Context) error {
	return runCommand(ctx, p.logger, "systemctl", "poweroff")
}

func (p *localPower) Lock(ctx context.Context) error {
	return runCommand(ctx, p.logger, "loginctl", "lock-session")
}

func (p *localPower) Logout(ctx context.Context) error {
	return runCommand(ctx, p.logger, "loginctl", logoutArgs()...)
}

// logoutArgs targets the caller's session when the environment names one;
// without an id, loginctl terminates the session it was invoked from.
func logoutArgs() []string {
	if id := strings.TrimSpace(os.Getenv("XDG_SESSION_ID")); id != "" {
		return []string{"terminate-session", id}
	}
	return []string{"terminate-session"}
}

type localOpener struct {
	logger *slog.Logger
}

func (o *localOpener) OpenPath(ctx context.Context, path string) error {
	return runCommand(ctx, o.logger, "xdg-open", path)
}

func (o *localOpener) OpenURL(ctx context.Context, url string) error {
	return runCommand(ctx, o.logger, "xdg-open", url)
}

type localNotifier struct {
	logger *slog.Logger
}

func (n *localNotifier) Notify(ctx context.Context, title, message string) error {
	if message == "" {
		return runCommand(ctx, n.logger, "notify-send", title)
	}
	return runCommand(ctx, n.logger, "notify-send", title, message)
}
