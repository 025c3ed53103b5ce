package document

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"My Exam (Final).pdf":      "My_Exam__Final_.pdf",
		"math-2023_paper1.pdf":     "math-2023_paper1.pdf",
		"../../etc/passwd":         ".._.._etc_passwd",
		"xisaab fasalka 12aad.pdf": "xisaab_fasalka_12aad.pdf",
		"":                         DefaultFileName,
		"   ":                      DefaultFileName,
		"€€€":                      DefaultFileName,
		"..":                       DefaultFileName,
		"فيزياء.pdf":               "______.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}

func TestSanitizeFileName_Truncates(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("a", 500) + ".pdf")
	assert.Len(t, got, MaxFileNameLength)
}

func TestSanitizeFileName_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abcXYZ019._- /\\:*?\"<>|()éß漢\t\n")
	for i := 0; i < 2000; i++ {
		n := rng.Intn(300)
		rs := make([]rune, n)
		for j := range rs {
			rs[j] = alphabet[rng.Intn(len(alphabet))]
		}
		in := string(rs)
		once := SanitizeFileName(in)
		assert.Regexp(t, safeName, once, "input %q", in)
		assert.LessOrEqual(t, len(once), MaxFileNameLength)
		assert.Equal(t, once, SanitizeFileName(once), "not idempotent for %q", in)
	}
}
