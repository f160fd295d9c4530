package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/tarnish-app/tarnish/internal/library"
	"github.com/tarnish-app/tarnish/internal/logging"
)

// ErrExit 由 exit 命令返回，Run 收到后结束循环。
var ErrExit = errors.New("shell exit")

const prompt = ">> "

// Options 描述 Shell 依赖的协作者。Client 为空时 download 使用 http.DefaultClient；
// Fancy 控制表格是否使用 Unicode 边框，通常由终端检测决定。
type Options struct {
	Library     *library.Library
	Client      *http.Client
	HistoryFile string
	Out         io.Writer
	Logger      *logrus.Logger
	Fancy       bool
}

// Shell 是对 Library 的行式命令循环。单线程使用。
type Shell struct {
	lib      *library.Library
	client   *http.Client
	history  string
	out      io.Writer
	logger   *logrus.Logger
	fancy    bool
	registry *registry
}

// New 构造 Shell 并注册内置命令。
func New(opts Options) (*Shell, error) {
	if opts.Library == nil {
		return nil, errors.New("shell requires a library")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	s := &Shell{
		lib:      opts.Library,
		client:   opts.Client,
		history:  opts.HistoryFile,
		out:      out,
		logger:   logging.OrDiscard(opts.Logger),
		fancy:    opts.Fancy,
		registry: newRegistry(),
	}
	for _, cmd := range builtinCommands() {
		if err := s.Register(cmd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Execute 解析并执行一行输入。空行为 no-op；exit 返回 ErrExit。
func (s *Shell) Execute(ctx context.Context, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	cmd, ok := s.Resolve(words[0])
	if !ok {
		return fmt.Errorf("unknown command %q, try help", words[0])
	}
	s.logger.WithFields(logrus.Fields{"action": "shell_command", "command": cmd.Name}).Debug("execute")
	return cmd.Run(ctx, s, words[1:])
}

// Run 以 readline 驱动命令循环，直到 exit、EOF 或 Ctrl-C。历史记录写入 HistoryFile。
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     s.history,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          s.out,
		FuncIsTerminal:  stdinIsTerminal,
	})
	if err != nil {
		return fmt.Errorf("init line editor: %w", err)
	}
	defer rl.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		err = s.Execute(ctx, line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) completer() readline.AutoCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(s.List()))
	for _, name := range s.Keys() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}

// IsTerminal 报告文件描述符是否连接到终端。
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stdinIsTerminal() bool {
	return IsTerminal(os.Stdin.Fd())
}
