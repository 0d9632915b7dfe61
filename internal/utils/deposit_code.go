package utils

import (
	"fmt"
	"regexp"
)

// Deposit codes are two-digit numeric strings ("01".."99") written by the
// depositor as the bank transfer memo. Two digits keep the memo short enough to
// survive every bank's statement truncation.

var digitRunPattern = regexp.MustCompile(`\d+`)

// ExtractDepositCode pulls the deposit code out of a statement memo. A token is
// a maximal digit run of exactly two digits; exactly one distinct token must
// appear, anything else returns "" and leaves the transaction for name-based
// matching.
func ExtractDepositCode(text string) string {
	seen := make(map[string]struct{})
	var code string
	for _, run := range digitRunPattern.FindAllString(text, -1) {
		if len(run) != 2 {
			continue
		}
		if _, ok := seen[run]; !ok {
			seen[run] = struct{}{}
			code = run
		}
	}
	if len(seen) != 1 {
		return ""
	}
	return code
}

// GenerateDepositCode picks a random two-digit code not currently used by any
// open charge order. With 99 possible codes the pool is deliberately small; the
// caller must pass the codes of all open orders so collisions are excluded at
// generation time rather than discovered at match time.
func GenerateDepositCode(inUse []string) (string, error) {
	used := make(map[string]struct{}, len(inUse))
	for _, c := range inUse {
		used[c] = struct{}{}
	}
	if len(used) >= 99 {
		return "", fmt.Errorf("no deposit codes available: all 99 codes in use")
	}
	for {
		n, err := SecureIntn(99)
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%02d", n+1)
		if _, taken := used[code]; !taken {
			return code, nil
		}
	}
}
