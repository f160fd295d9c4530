package shell

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Command 描述一个交互命令：名称、用法、说明与执行函数。
type Command struct {
	Name    string
	Usage   string
	Summary string
	Run     func(ctx context.Context, s *Shell, args []string) error
}

type registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func newRegistry() *registry {
	return &registry{commands: make(map[string]Command)}
}

func (r *registry) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// register 将命令加入注册表，重复名称会返回错误。
func (r *registry) register(cmd Command) error {
	key := r.normalizeKey(cmd.Name)
	if key == "" {
		return fmt.Errorf("command name is required")
	}
	if cmd.Run == nil {
		return fmt.Errorf("command %s has no handler", key)
	}
	cmd.Name = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[key]; exists {
		return fmt.Errorf("command %s already registered", key)
	}
	r.commands[key] = cmd
	return nil
}

func (r *registry) resolve(key string) (Command, bool) {
	if key == "" {
		return Command{}, false
	}
	normalized := r.normalizeKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.commands[normalized]
	return cmd, ok
}

// list 返回按名称排序的命令列表。
func (r *registry) list() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.commands))
	for key := range r.commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Command, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.commands[key])
	}
	return result
}

// Register 向 Shell 追加一个命令。
func (s *Shell) Register(cmd Command) error {
	return s.registry.register(cmd)
}

// Resolve 返回指定名称的命令。
func (s *Shell) Resolve(name string) (Command, bool) {
	return s.registry.resolve(name)
}

// List 返回按名称排序的全部命令。
func (s *Shell) List() []Command {
	return s.registry.list()
}

// Keys 返回所有命令名，供补全使用。
func (s *Shell) Keys() []string {
	items := s.List()
	result := make([]string, len(items))
	for i, cmd := range items {
		result[i] = cmd.Name
	}
	return result
}
