package services

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

var codeAdjectives = []string{
	"HAPPY", "SPICY", "SWEET", "CRISPY", "ZESTY", "SMOKY", "TANGY", "SAVORY",
	"FRESH", "GOLDEN", "CHEESY", "CRUNCHY", "HEARTY", "JUICY", "MELLOW", "TOASTY",
}

var codeNouns = []string{
	"PASTA", "TACO", "PIZZA", "CURRY", "SUSHI", "RAMEN", "BURGER", "SALAD",
	"WAFFLE", "BAGEL", "DUMPLING", "PANCAKE", "NOODLE", "BURRITO", "MUFFIN", "PRETZEL",
}

var codePattern = regexp.MustCompile(`^[A-Z]+-[A-Z]+-[0-9]{1,2}$`)

// CodeGenerator draws ADJECTIVE-NOUN-NN invite codes. Uniqueness is left to
// the gateway.
type CodeGenerator struct {
	intN func(n int) int
}

// NewCodeGenerator returns a generator backed by the global math/rand/v2 source.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{intN: rand.IntN}
}

// Generate returns a code such as HAPPY-PASTA-42. The suffix is 1..99.
func (g *CodeGenerator) Generate() string {
	adjective := codeAdjectives[g.intN(len(codeAdjectives))]
	noun := codeNouns[g.intN(len(codeNouns))]
	return fmt.Sprintf("%s-%s-%d", adjective, noun, g.intN(99)+1)
}

// NormalizeCode trims and uppercases user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the invite code shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
