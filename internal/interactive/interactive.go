/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end

// Package interactive provides a console-based reference implementation of
// policy.PromptCapability for the CLI's --interactive verify flows. It is
// not part of the core verification engine.
package interactive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"schemapin/internal/policy"
)

// ConsoleHandler renders policy.PromptContext to the terminal and reads the
// operator's choice from an input stream, defaulting to reject on timeout
// or EOF.
type ConsoleHandler struct {
	reader  *bufio.Reader
	timeout time.Duration
}

// NewConsoleHandler constructs a ConsoleHandler reading from stdin with a
// 30 second default response timeout.
func NewConsoleHandler() *ConsoleHandler {
	return NewConsoleHandlerWithTimeout(os.Stdin, 30*time.Second)
}

// NewConsoleHandlerWithTimeout constructs a ConsoleHandler reading from r
// with a custom response timeout.
func NewConsoleHandlerWithTimeout(r io.Reader, timeout time.Duration) *ConsoleHandler {
	return &ConsoleHandler{
		reader:  bufio.NewReader(r),
		timeout: timeout,
	}
}

// Prompt implements policy.PromptCapability.
func (c *ConsoleHandler) Prompt(ctx context.Context, pc *policy.PromptContext) (policy.Decision, error) {
	header := color.New(color.FgHiWhite, color.Bold)
	header.Println("\n" + strings.Repeat("=", 60))
	header.Println("SCHEMAPIN SECURITY PROMPT")
	header.Println(strings.Repeat("=", 60))

	switch pc.Event {
	case policy.EventFirstUse:
		c.displayFirstUse(pc)
	case policy.EventKeyChange:
		c.displayKeyChange(pc)
	case policy.EventRevoked:
		c.displayRevoked(pc)
	}

	return c.readChoice(ctx, pc.Event)
}

func (c *ConsoleHandler) displayFirstUse(pc *policy.PromptContext) {
	fmt.Printf("\nFirst-time key encounter for tool: %s\n", pc.ToolID)
	fmt.Printf("Domain: %s\n", pc.Domain)

	if pc.DeveloperName != "" {
		fmt.Printf("Developer: %s\n", pc.DeveloperName)
	}

	fmt.Printf("Key fingerprint: %s\n", pc.NewFingerprint)
	fmt.Println("\nThis is the first time this tool's signing key has been seen.")
	fmt.Println("Pin this key for future verification?")
}

func (c *ConsoleHandler) displayKeyChange(pc *policy.PromptContext) {
	warn := color.New(color.FgHiYellow, color.Bold)
	warn.Printf("\nKEY CHANGE DETECTED for tool: %s\n", pc.ToolID)
	fmt.Printf("Domain: %s\n", pc.Domain)
	fmt.Printf("Previously pinned fingerprint: %s\n", pc.CurrentFingerprint)
	fmt.Printf("New fingerprint offered: %s\n", pc.NewFingerprint)
	fmt.Println("\nThis may be a legitimate key rotation, or a sign of compromise.")
	if pc.SecurityWarning != "" {
		warn.Printf("%s\n", pc.SecurityWarning)
	}
}

func (c *ConsoleHandler) displayRevoked(pc *policy.PromptContext) {
	warn := color.New(color.FgHiRed, color.Bold)
	warn.Printf("\nREVOKED KEY DETECTED for tool: %s\n", pc.ToolID)
	fmt.Printf("Domain: %s\n", pc.Domain)
	fmt.Printf("Fingerprint: %s\n", pc.CurrentFingerprint)
	warn.Println("This key has been revoked by the developer. Using this tool is not recommended.")
	if pc.SecurityWarning != "" {
		warn.Printf("%s\n", pc.SecurityWarning)
	}
}

func (c *ConsoleHandler) readChoice(ctx context.Context, event policy.Event) (policy.Decision, error) {
	var choices map[string]policy.Decision
	var prompt string

	if event == policy.EventRevoked {
		choices = map[string]policy.Decision{
			"r": policy.DecisionReject,
			"n": policy.DecisionNeverTrust,
		}
		prompt = "\nChoices:\n  r) Reject (recommended)\n  n) Never trust this domain\nChoice [r]: "
	} else {
		choices = map[string]policy.Decision{
			"a": policy.DecisionAccept,
			"r": policy.DecisionReject,
			"t": policy.DecisionAlwaysTrust,
			"n": policy.DecisionNeverTrust,
			"o": policy.DecisionTemporaryAccept,
		}
		prompt = "\nChoices:\n" +
			"  a) Accept and pin this key\n" +
			"  r) Reject this key\n" +
			"  t) Always trust this domain\n" +
			"  n) Never trust this domain\n" +
			"  o) Accept once (temporary)\n" +
			"Choice [r]: "
	}

	resultCh := make(chan policy.Decision, 1)
	errCh := make(chan error, 1)

	go func() {
		for {
			fmt.Print(prompt)

			line, err := c.reader.ReadString('\n')
			if err != nil {
				errCh <- err
				return
			}

			choice := strings.ToLower(strings.TrimSpace(line))
			if choice == "" {
				resultCh <- policy.DecisionReject
				return
			}

			if d, ok := choices[choice]; ok {
				resultCh <- d
				return
			}

			fmt.Println("Invalid choice. Please try again.")
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case d := <-resultCh:
		return d, nil
	case err := <-errCh:
		return policy.DecisionReject, err
	case <-timeoutCtx.Done():
		fmt.Println("\nTimeout reached. Defaulting to reject.")
		return policy.DecisionReject, nil
	}
}
