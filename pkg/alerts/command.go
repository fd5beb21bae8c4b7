package alerts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandNotifier runs an external notify script as `path <message> <severity>`.
type CommandNotifier struct {
	path    string
	timeout time.Duration
}

// NewCommandNotifier creates a notifier for the script at path.
func NewCommandNotifier(path string) *CommandNotifier {
	return &CommandNotifier{path: path, timeout: 30 * time.Second}
}

func (c *CommandNotifier) Name() string { return "command" }

func (c *CommandNotifier) Send(ctx context.Context, alert Alert) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, alert.Message, string(alert.Level))
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("run notify command %s: %w: %s", c.path, err, msg)
		}
		return fmt.Errorf("run notify command %s: %w", c.path, err)
	}
	return nil
}
