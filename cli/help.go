// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/openthread/ot-nrf802154/logger"
)

const (
	defaultTermWidth = 80
	cmdColumnWidth   = 10
	helpIndent       = "  "
)

var (
	cmdHeaderPattern  = regexp.MustCompile(`^### .+`)
	linkTargetPattern = regexp.MustCompile(`\(#[a-z-]+\)`)
	codeBlockTitles   = map[string]string{
		"```bash":  "Example:",
		"```shell": "Definition:",
	}
)

//go:embed README.md
var cliHelpFile string

// Help renders the command reference in README.md, wrapped to the terminal width.
type Help struct {
	termWidth uint
	names     []string
	commands  map[string]string
	summaries map[string]string
}

func newHelp() Help {
	h := Help{
		termWidth: defaultTermWidth,
		commands:  make(map[string]string),
		summaries: make(map[string]string),
	}
	h.parse(cliHelpFile)
	h.update()
	return h
}

// update takes the width of the terminal on stdout, if there is one.
func (help *Help) update() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		logger.Debugf("terminal size: %v", err)
		return
	}
	if width > cmdColumnWidth+20 {
		help.termWidth = uint(width)
	}
}

func (help *Help) outputGeneralHelp() string {
	var sb strings.Builder
	for _, name := range help.names {
		sb.WriteString(fmt.Sprintf("%-*s %s\n", cmdColumnWidth, name, help.summaries[name]))
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.update()
	text, ok := help.commands[command]
	if !ok {
		return fmt.Sprintf("%s\n%s(Non-existent command.)\n", command, helpIndent)
	}

	var sb strings.Builder
	sb.WriteString(command + "\n")
	width := help.termWidth - uint(len(helpIndent))
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		for _, wrapped := range strings.Split(wordwrap.WrapString(line, width), "\n") {
			sb.WriteString(helpIndent + wrapped + "\n")
		}
	}
	return sb.String()
}

// parse splits the markdown help file into one section per '### command' header. The first
// sentence of a section is the command summary.
func (help *Help) parse(md string) {
	active := ""
	indent := ""
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case len(line) == 0:
			continue
		case line == "```bash", line == "```shell":
			if active != "" {
				help.commands[active] += codeBlockTitles[line] + "\n"
			}
			indent = "  "
			continue
		case line == "```":
			indent = ""
			continue
		case cmdHeaderPattern.MatchString(line):
			active = strings.TrimSpace(line[strings.Index(line, " ")+1:])
			help.names = append(help.names, active)
			help.commands[active] = ""
			indent = ""
			continue
		}
		if active == "" {
			continue
		}

		line = markdownUnquote(line)
		if indent == "" && help.summaries[active] == "" {
			summary := line
			if idx := strings.Index(line, "."); idx > 0 {
				summary = line[:idx+1]
			}
			help.summaries[active] = summary
		}
		help.commands[active] += indent + line + "\n"
	}
	sort.Strings(help.names)
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	md = strings.ReplaceAll(md, "`", "")
	return linkTargetPattern.ReplaceAllString(md, "")
}
