// Package cli handles cmd line input and suggestions for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordtree/internal/logger"
	"github.com/bastiangx/wordtree/internal/utils"
	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/charmbracelet/log"
)

// InputHandler reads prefixes line by line and prints the suggestions of
// every loaded engine side by side, so both strategies can be compared on
// the same input.
//
// A line starting with '+' learns the rest of the line as an accepted term.
// The line ":stats" prints engine statistics.
type InputHandler struct {
	completers      []*suggest.Completer
	maxPrefixLength int
	suggestLimit    int
	caseSensitive   bool
	in              io.Reader
	out             *log.Logger
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(completers []*suggest.Completer, maxLength, limit int, caseSensitive bool, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		completers:      completers,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
		caseSensitive:   caseSensitive,
		in:              in,
		out:             logger.NewWithWriter(out, ""),
	}
}

// Start begins the interface loop. It returns nil when the input ends.
func (h *InputHandler) Start() error {
	h.out.SetReportTimestamp(false)
	h.out.Print("wordtree CLI")
	h.out.Print("type a prefix and press Enter, '+word' to learn, ':stats' for stats (Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":stats":
			h.printStats()
		case strings.HasPrefix(line, "+"):
			h.learn(line[1:])
		default:
			h.handleInput(line)
		}
	}
	return scanner.Err()
}

// handleInput queries every engine for prefix and prints the ranked results.
func (h *InputHandler) handleInput(prefix string) {
	prefix = utils.NormalizeTerm(prefix, h.caseSensitive)
	if utf8.RuneCountInString(prefix) > h.maxPrefixLength {
		h.out.Errorf("Prefix too long: %s", prefix)
		return
	}

	for _, c := range h.completers {
		start := time.Now()
		suggestions, err := c.Suggest(prefix, h.suggestLimit)
		elapsed := time.Since(start)
		if err != nil {
			h.out.Errorf("[%s] %v", c.Strategy(), err)
			continue
		}
		if len(suggestions) == 0 {
			h.out.Warnf("[%s] No suggestions found for prefix: '%s'", c.Strategy(), prefix)
			continue
		}

		h.out.Printf("[%s] %d suggestions for '%s' in %v:", c.Strategy(), len(suggestions), prefix, elapsed)
		for i, s := range suggestions {
			clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
			h.out.Printf("%2d. %-40s (weight: %8s)", i+1, clWord, utils.FormatWithCommas(s.Weight))
		}
	}
}

func (h *InputHandler) learn(term string) {
	term = utils.NormalizeTerm(term, h.caseSensitive)
	for _, c := range h.completers {
		weight, err := c.Learn(term, 1)
		if err != nil {
			h.out.Errorf("[%s] %v", c.Strategy(), err)
			continue
		}
		h.out.Printf("[%s] learned '%s', weight now %s", c.Strategy(), term, utils.FormatWithCommas(weight))
	}
}

func (h *InputHandler) printStats() {
	for _, c := range h.completers {
		st := c.Stats()
		h.out.Printf("[%s] terms=%s nodes=%s memory~%s load=%v",
			st.Strategy,
			utils.FormatWithCommas(st.Terms),
			utils.FormatWithCommas(st.Nodes),
			utils.FormatBytes(st.ApproxBytes),
			st.LoadTime)
	}
}
