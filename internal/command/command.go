// Package command parses chat text into typed bot commands.
//
// Each command is described by a Descriptor: the keyword, whether an
// @mention of the bot is required, and the shape of the argument. Parse
// evaluates the descriptors against a message and yields a Command.
package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind enumerates the recognised commands.
type Kind int

const (
	KindUnknown Kind = iota
	KindUpdate
	KindDelete
	KindDeleteMe
	KindShow
	KindHelp
	KindStart
)

func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindDeleteMe:
		return "deleteme"
	case KindShow:
		return "show"
	case KindHelp:
		return "help"
	case KindStart:
		return "start"
	default:
		return "unknown"
	}
}

// MentionRule says whether "@botname" must follow the keyword.
type MentionRule int

const (
	MentionOptional MentionRule = iota
	MentionRequired
)

// ArgShape says what follows the command word.
type ArgShape int

const (
	// ArgNone ignores anything after the command word.
	ArgNone ArgShape = iota
	// ArgOptionalLine takes the rest of the first line, possibly empty.
	ArgOptionalLine
	// ArgRequiredLine takes the rest of the first line, which must be non-empty.
	ArgRequiredLine
	// ArgRequiredText takes everything after the separator, newlines included.
	ArgRequiredText
)

// Descriptor is one entry of the command grammar.
type Descriptor struct {
	Kind    Kind
	Keyword string
	Mention MentionRule
	Arg     ArgShape
}

// Grammar is the set of commands the bot understands.
var Grammar = []Descriptor{
	{Kind: KindUpdate, Keyword: "update", Mention: MentionOptional, Arg: ArgRequiredText},
	{Kind: KindDelete, Keyword: "delete", Mention: MentionRequired, Arg: ArgRequiredLine},
	{Kind: KindDeleteMe, Keyword: "deleteme", Mention: MentionOptional, Arg: ArgNone},
	{Kind: KindShow, Keyword: "show", Mention: MentionOptional, Arg: ArgOptionalLine},
	{Kind: KindHelp, Keyword: "help", Mention: MentionOptional, Arg: ArgNone},
	{Kind: KindStart, Keyword: "start", Mention: MentionOptional, Arg: ArgNone},
}

// Command is a parsed command.
type Command struct {
	Kind    Kind
	Mention string // bot username after '@', without the '@'
	Arg     string
	Raw     string
}

// AddressedTo reports whether the command carried "@username" exactly.
func (c Command) AddressedTo(username string) bool {
	return c.Mention != "" && c.Mention == username
}

// Parse matches text against Grammar. The second result is false when the
// text is not a recognised command.
func Parse(text string) (Command, bool) {
	return ParseWith(Grammar, text)
}

// ParseWith matches text against the given descriptors.
func ParseWith(grammar []Descriptor, text string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest := splitHead(text[1:])
	keyword, mention, hasAt := strings.Cut(head, "@")
	if hasAt && !isWord(mention) {
		return Command{}, false
	}

	for _, d := range grammar {
		if d.Keyword != keyword {
			continue
		}
		if d.Mention == MentionRequired && !hasAt {
			return Command{}, false
		}
		arg, ok := extractArg(d.Arg, rest)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: d.Kind, Mention: mention, Arg: arg, Raw: text}, true
	}
	return Command{}, false
}

// splitHead separates the command word from the remainder. The remainder
// keeps its leading separator so extractArg can tell "no argument" apart
// from "empty argument".
func splitHead(s string) (head, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func extractArg(shape ArgShape, rest string) (string, bool) {
	switch shape {
	case ArgNone:
		return "", true
	case ArgOptionalLine:
		return firstLine(rest), true
	case ArgRequiredLine:
		line := firstLine(rest)
		return line, line != ""
	case ArgRequiredText:
		if rest == "" {
			return "", false
		}
		// Drop exactly one separator so the payload round-trips verbatim.
		_, size := utf8.DecodeRuneInString(rest)
		payload := rest[size:]
		return payload, strings.TrimSpace(payload) != ""
	default:
		return "", false
	}
}

func firstLine(rest string) string {
	if rest == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(rest)
	rest = rest[size:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
