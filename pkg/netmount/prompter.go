package netmount

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// CLIPrompter implements CredentialPrompter against the controlling
// terminal, for a daemon running interactively rather than behind a
// graphical polkit-style agent.
type CLIPrompter struct {
	in  *bufio.Reader
	out *os.File
}

var _ CredentialPrompter = (*CLIPrompter)(nil)

func NewCLIPrompter() *CLIPrompter {
	return &CLIPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *CLIPrompter) PromptPassword(ctx context.Context, message, defaultUser, defaultDomain string, anonymousAllowed bool) (PromptResult, error) {
	fmt.Fprintln(p.out, message)
	if anonymousAllowed {
		fmt.Fprint(p.out, "Connect anonymously? [y/N]: ")
		line, _ := p.in.ReadString('\n')
		if strings.EqualFold(strings.TrimSpace(line), "y") {
			return PromptResult{Anonymous: true}, nil
		}
	}

	fmt.Fprintf(p.out, "Domain [%s]: ", defaultDomain)
	domain, _ := p.in.ReadString('\n')
	domain = strings.TrimSpace(domain)
	if domain == "" {
		domain = defaultDomain
	}

	fmt.Fprintf(p.out, "User [%s]: ", defaultUser)
	user, _ := p.in.ReadString('\n')
	user = strings.TrimSpace(user)
	if user == "" {
		user = defaultUser
	}

	fmt.Fprint(p.out, "Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return PromptResult{}, fmt.Errorf("netmount: read password: %w", err)
	}

	return PromptResult{User: user, Domain: domain, Password: string(passwordBytes), Save: SaveSession}, nil
}

func (p *CLIPrompter) PromptChoice(ctx context.Context, message string, choices []string) (int, bool) {
	fmt.Fprintln(p.out, message)
	for i, c := range choices {
		fmt.Fprintf(p.out, "  [%d] %s\n", i+1, c)
	}
	fmt.Fprint(p.out, "Choice: ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return 0, true
	}
	var n int
	if _, scanErr := fmt.Sscanf(strings.TrimSpace(line), "%d", &n); scanErr != nil || n < 1 || n > len(choices) {
		return 0, true
	}
	return n - 1, false
}
