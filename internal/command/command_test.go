package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		ok      bool
		kind    Kind
		mention string
		arg     string
	}{
		{name: "update", text: "/update i7 + 32GB", ok: true, kind: KindUpdate, arg: "i7 + 32GB"},
		{name: "update with mention", text: "/update@hwbot Ryzen 5", ok: true, kind: KindUpdate, mention: "hwbot", arg: "Ryzen 5"},
		{name: "update keeps newlines", text: "/update cpu\ngpu\n", ok: true, kind: KindUpdate, arg: "cpu\ngpu\n"},
		{name: "update keeps inner spacing", text: "/update  two spaces", ok: true, kind: KindUpdate, arg: " two spaces"},
		{name: "update without text", text: "/update", ok: false},
		{name: "update with blank text", text: "/update   ", ok: false},
		{name: "delete", text: "/delete@hwbot @Alice", ok: true, kind: KindDelete, mention: "hwbot", arg: "@Alice"},
		{name: "delete needs mention", text: "/delete alice", ok: false},
		{name: "delete needs target", text: "/delete@hwbot", ok: false},
		{name: "delete target is first line", text: "/delete@hwbot bob\nignored", ok: true, kind: KindDelete, mention: "hwbot", arg: "bob"},
		{name: "deleteme", text: "/deleteme", ok: true, kind: KindDeleteMe},
		{name: "deleteme with mention", text: "/deleteme@hwbot", ok: true, kind: KindDeleteMe, mention: "hwbot"},
		{name: "show all", text: "/show", ok: true, kind: KindShow},
		{name: "show one", text: "/show @GnuPetrovich", ok: true, kind: KindShow, arg: "@GnuPetrovich"},
		{name: "show one trimmed", text: "/show@hwbot  bob  ", ok: true, kind: KindShow, mention: "hwbot", arg: "bob"},
		{name: "help", text: "/help", ok: true, kind: KindHelp},
		{name: "start", text: "/start@hwbot", ok: true, kind: KindStart, mention: "hwbot"},
		{name: "keyword is case sensitive", text: "/Show", ok: false},
		{name: "unknown keyword", text: "/showall", ok: false},
		{name: "plain text", text: "hello there", ok: false},
		{name: "empty mention", text: "/show@ bob", ok: false},
		{name: "invalid mention", text: "/show@hw-bot", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := Parse(tt.text)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.mention, cmd.Mention)
			assert.Equal(t, tt.arg, cmd.Arg)
			assert.Equal(t, tt.text, cmd.Raw)
		})
	}
}

func TestCommand_AddressedTo(t *testing.T) {
	cmd, ok := Parse("/show@HwBot")
	assert.True(t, ok)

	assert.True(t, cmd.AddressedTo("HwBot"))
	assert.False(t, cmd.AddressedTo("hwbot"), "mention comparison is case-sensitive")
	assert.False(t, cmd.AddressedTo("otherbot"))

	bare, _ := Parse("/show")
	assert.False(t, bare.AddressedTo(""))
}

func TestKind_String(t *testing.T) {
	for _, d := range Grammar {
		assert.Equal(t, d.Keyword, d.Kind.String())
	}
	assert.Equal(t, "unknown", KindUnknown.String())
}
