package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/creatorbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRoute rejects empty names, missing handlers and commands
	// without a leading slash or description.
	ErrInvalidRoute = errors.New("telegram: invalid route")
	// ErrDuplicateRoute rejects a second registration under the same name.
	ErrDuplicateRoute = errors.New("telegram: duplicate route")
)

// Registry maps commands, their aliases and callback keys to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc
	text      tele.HandlerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// AddCommand registers a slash command; its aliases also match without the
// slash when typed as plain text.
func (r *Registry) AddCommand(name string, cmd commands.Command) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") || len(name) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("%w: command %q", ErrInvalidRoute, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("%w: command %s", ErrDuplicateRoute, name)
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases["/"+strings.TrimPrefix(strings.ToLower(a), "/")] = name
	}
	return nil
}

// Command resolves text to a registered command by name or alias. The
// leading slash is optional.
func (r *Registry) Command(text string) (string, commands.Command, bool) {
	name := strings.ToLower(strings.TrimSpace(text))
	if name == "" || strings.ContainsAny(name, " \n\t,") {
		return "", commands.Command{}, false
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	cmd, ok := r.commands[name]
	return name, cmd, ok
}

// CommandNames lists registered command names in order.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Menu returns the visible commands for the Telegram command menu.
func (r *Registry) Menu() []tele.Command {
	var menu []tele.Command
	for _, n := range r.CommandNames() {
		r.mu.RLock()
		cmd := r.commands[n]
		r.mu.RUnlock()
		if !cmd.Hidden {
			menu = append(menu, tele.Command{Text: strings.TrimPrefix(n, "/"), Description: cmd.Description})
		}
	}
	return menu
}

// AddCallback binds an inline button key to h.
func (r *Registry) AddCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return fmt.Errorf("%w: callback %q", ErrInvalidRoute, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("%w: callback %s", ErrDuplicateRoute, key)
	}
	r.callbacks[key] = h
	return nil
}

// Callback returns the handler bound to key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys lists registered callback keys in order.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetTextFallback handles text that is neither an open step nor a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.text = h
	r.mu.Unlock()
}

// TextFallback returns the handler set by SetTextFallback.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}
