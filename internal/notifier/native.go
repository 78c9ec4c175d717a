package notifier

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes a local command. The default runs it with os/exec.
type Runner func(ctx context.Context, name string, args ...string) error

// NativeNotifier shows an OS desktop notification. The variant is chosen by
// the platform tag: darwin uses osascript, linux notify-send and windows
// PowerShell.
type NativeNotifier struct {
	Platform string
	Run      Runner
	LookPath func(file string) (string, error)
}

// NewNativeNotifier creates a notifier for the host platform.
func NewNativeNotifier() *NativeNotifier {
	return &NativeNotifier{Platform: runtime.GOOS, Run: execRunner, LookPath: exec.LookPath}
}

func (n *NativeNotifier) Name() string { return "native" }

func (n *NativeNotifier) Send(ctx context.Context, title, message string) error {
	name, args, err := n.command(title, message)
	if err != nil {
		return err
	}
	if err := n.Run(ctx, name, args...); err != nil {
		return errors.Wrap(err, "native notification failed")
	}
	return nil
}

// Verify reports the tool that would be invoked, if it is on PATH.
func (n *NativeNotifier) Verify(_ context.Context) (string, error) {
	name, _, err := n.command("", "")
	if err != nil {
		return "", err
	}
	path, err := n.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, "%s not available", name)
	}
	return path, nil
}

func (n *NativeNotifier) command(title, message string) (string, []string, error) {
	switch n.Platform {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Default"`,
			appleScriptQuote(message), appleScriptQuote(title))
		return "osascript", []string{"-e", script}, nil
	case "linux":
		return "notify-send", []string{title, message, "--icon=dialog-information", "--expire-time=10000"}, nil
	case "windows":
		ps := strings.Join([]string{
			"Add-Type -AssemblyName System.Windows.Forms",
			"$n = New-Object System.Windows.Forms.NotifyIcon",
			"$n.Icon = [System.Drawing.SystemIcons]::Information",
			"$n.BalloonTipTitle = '" + psQuote(title) + "'",
			"$n.BalloonTipText = '" + psQuote(message) + "'",
			"$n.Visible = $True",
			"$n.ShowBalloonTip(10000)",
			"Start-Sleep -Seconds 12",
			"$n.Dispose()",
		}, "; ")
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", ps}, nil
	default:
		return "", nil, errors.Wrap(ErrUnsupportedPlatform, n.Platform)
	}
}

func appleScriptQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
