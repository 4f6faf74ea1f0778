package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/template"
)

// CommandTimeout bounds a single run of an external command plugin
const CommandTimeout = 30 * time.Second

// External is a plugin implemented by a command speaking JSON over stdin/stdout
type External struct {
	name    string
	command string
	hooks   []string
	env     Env
	timeout time.Duration
}

// NewExternal creates the command plugin name from its settings
func NewExternal(name string, env Env) *External {
	hooks := env.Settings.Hooks
	if len(hooks) == 0 {
		hooks = []string{HookPageBefore}
	}
	return &External{
		name:    name,
		command: env.Settings.Command,
		hooks:   hooks,
		env:     env,
		timeout: CommandTimeout,
	}
}

func (e *External) Name() string { return e.name }

func (e *External) Filters() map[string]any { return nil }

func (e *External) Blocks() map[string]template.Block { return nil }

func (e *External) Hooks() Hooks {
	var h Hooks
	for _, name := range e.hooks {
		switch name {
		case HookConfig:
			h.Config = e.configHook
		case HookInit:
			h.Init = e.lifecycleHook(HookInit)
		case HookFinishBefore:
			h.FinishBefore = e.lifecycleHook(HookFinishBefore)
		case HookFinish:
			h.Finish = e.lifecycleHook(HookFinish)
		case HookPageBefore:
			h.PageBefore = e.pageHook(HookPageBefore)
		case HookPage:
			h.Page = e.pageHook(HookPage)
		default:
			e.env.Logger.Warn("Unknown hook for plugin", zap.String("plugin", e.name), zap.String("hook", name))
		}
	}
	return h
}

func (e *External) configHook(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	req := e.request(HookConfig)
	req.Config = cfg
	resp, err := e.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Config, nil
}

func (e *External) lifecycleHook(hook string) LifecycleHook {
	return func(ctx context.Context) error {
		_, err := e.run(ctx, e.request(hook))
		return err
	}
}

func (e *External) pageHook(hook string) PageHook {
	return func(ctx context.Context, page PageInput) (string, error) {
		req := e.request(hook)
		req.Page = &page
		resp, err := e.run(ctx, req)
		if err != nil {
			return "", err
		}
		if resp.Content == nil {
			return "", nil
		}
		return *resp.Content, nil
	}
}

func (e *External) request(hook string) Request {
	req := Request{Hook: hook, Version: ProtocolVersion}
	if e.env.Host != nil {
		req.Output = e.env.Host.Name()
	}
	if e.env.Book != nil {
		req.Book = e.env.Book()
	}
	if e.env.Config != nil {
		req.Config = e.env.Config()
	}
	return req
}

// run executes the command once for req
func (e *External) run(ctx context.Context, req Request) (*Response, error) {
	parts := strings.Fields(e.command)
	if len(parts) == 0 {
		return nil, errs.Plugin(e.name, "empty command", nil)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Plugin(e.name, "failed to marshal plugin request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = e.env.Root
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.env.Logger.Debug("Running plugin command",
		zap.String("plugin", e.name), zap.String("hook", req.Hook), zap.String("command", e.command))

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w\nstderr: %s", err, msg)
		}
		return nil, errs.Plugin(e.name, fmt.Sprintf("hook %q failed", req.Hook), err)
	}

	resp, err := UnmarshalResponse(bytes.TrimSpace(stdout.Bytes()))
	if err != nil {
		return nil, errs.Plugin(e.name, fmt.Sprintf("hook %q returned invalid JSON", req.Hook), err)
	}
	return resp, nil
}
