// Package listener owns the interactive console line: reading commands and
// printing asynchronous chain events above the prompt without clobbering
// what the user is typing.
package listener

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

var ErrClosed = errors.New("console closed")

var rl *readline.Instance
var mu sync.Mutex
var holdAsync bool
var heldLines []string

// Init opens the console. commands and chains feed tab completion; a
// command listed in chainCommands completes chain names as its argument.
func Init(prompt string, commands, chainCommands, chains []string) error {
	var items []readline.PrefixCompleterInterface
	takesChain := make(map[string]bool, len(chainCommands))
	for _, c := range chainCommands {
		takesChain[c] = true
	}
	for _, c := range commands {
		if !takesChain[c] {
			items = append(items, readline.PcItem(c))
			continue
		}
		var names []readline.PrefixCompleterInterface
		for _, n := range chains {
			names = append(names, readline.PcItem(n))
		}
		items = append(items, readline.PcItem(c, names...))
	}

	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	return err
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		_ = rl.Close()
		rl = nil
	}
}

// GetInput blocks for the next line. Ctrl+C on an empty line and Ctrl+D
// both report ErrClosed.
func GetInput() (string, error) {
	mu.Lock()
	inst := rl
	mu.Unlock()
	if inst == nil {
		return "", ErrClosed
	}

	line, err := inst.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		if strings.TrimSpace(line) == "" {
			return "", ErrClosed
		}
		return "", nil
	case errors.Is(err, io.EOF):
		return "", ErrClosed
	case err != nil:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func getConfirmation(prompt string) string {
	mu.Lock()
	inst := rl
	var old string
	if inst != nil {
		old = inst.Config.Prompt
		inst.SetPrompt(prompt)
	}
	mu.Unlock()
	if inst == nil {
		return ""
	}

	line, err := inst.Readline()
	if err != nil {
		line = ""
	}

	mu.Lock()
	inst.SetPrompt(old)
	mu.Unlock()
	return strings.TrimSpace(strings.ToLower(line))
}

func beginInteractive() {
	mu.Lock()
	holdAsync = true
	mu.Unlock()
}

func endInteractive() {
	mu.Lock()
	defer mu.Unlock()
	holdAsync = false
	for _, s := range heldLines {
		printAboveUnlocked(s)
	}
	heldLines = nil
}

func printAboveUnlocked(s string) {
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}

// AsyncPrintln prints s above the prompt. While a yes/no question is open
// the line is held back and flushed once it is answered.
func AsyncPrintln(s string) {
	mu.Lock()
	defer mu.Unlock()
	if holdAsync {
		heldLines = append(heldLines, s)
		return
	}
	printAboveUnlocked(s)
}

func AskYesNo(question string) bool {
	beginInteractive()
	defer endInteractive()

	mu.Lock()
	printAboveUnlocked(question + " [y/n]")
	mu.Unlock()

	for {
		ans := getConfirmation("> ")
		if ans == "y" || ans == "yes" {
			return true
		}
		if ans == "n" || ans == "no" || ans == "" {
			return false
		}
		mu.Lock()
		printAboveUnlocked("Please answer y/n.")
		mu.Unlock()
	}
}
