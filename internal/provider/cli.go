package provider

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIProvider shells out to a local agent binary, passing the flattened
// conversation as the final argument.
type CLIProvider struct {
	binaryPath string
	args       []string
	timeout    time.Duration
}

func NewCLIProvider(binaryPath string, args []string) (*CLIProvider, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("binary path is required for CLI provider")
	}
	return &CLIProvider{
		binaryPath: binaryPath,
		args:       args,
		timeout:    2 * time.Minute,
	}, nil
}

func (p *CLIProvider) Name() string {
	return "cli-" + p.binaryPath
}

func (p *CLIProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	prompt := flattenMessages(messages)

	fullArgs := append(append([]string{}, p.args...), prompt)

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, p.binaryPath, fullArgs...)

	output, err := cmd.CombinedOutput()
	result := strings.TrimSpace(string(output))

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("cli agent timed out: %w", err)
		}
		return nil, fmt.Errorf("cli agent failed: %w\nOutput: %s", err, result)
	}

	return &Response{
		Content: result,
		Usage: Usage{
			TotalTokens: len(strings.Fields(result)),
		},
	}, nil
}

// flattenMessages renders system instructions ahead of the last user message.
func flattenMessages(messages []Message) string {
	var system, last string
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			last = m.Content
		}
	}
	if system == "" {
		return last
	}
	return system + "\n\n" + last
}

func (p *CLIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("cli: %w", ErrEmbeddingsUnsupported)
}
