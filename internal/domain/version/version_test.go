package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	valid := []string{"0.0.1", "1.2.3", "10.20.30", "1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-0.3.7", "1.0.0+build.1", "1.0.0-rc.1+sha.5114f85"}
	for _, s := range valid {
		_, err := Parse(s)
		assert.NoError(t, err, s)
	}

	invalid := []string{"", "1", "1.2", "v1.2.3", "01.2.3", "1.02.3", "1.2.3-", "1.2.3-01", "1.2.3+", "latest", "1.2.3.4"}
	for _, s := range invalid {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestCompare(t *testing.T) {
	// each version is strictly lower than the next
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"1.0.1",
		"1.2.0",
		"1.10.0",
		"2.0.0",
	}

	for i := 0; i < len(ordered)-1; i++ {
		a, b := MustParse(ordered[i]), MustParse(ordered[i+1])
		assert.Equal(t, -1, Compare(a, b), "%s < %s", a, b)
		assert.Equal(t, 1, Compare(b, a), "%s > %s", b, a)
	}
}

func TestCompareIgnoresBuildMetadata(t *testing.T) {
	c, err := CompareStrings("1.0.0+a", "1.0.0+b")
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestPrerelease(t *testing.T) {
	assert.Equal(t, "rc.1", MustParse("1.0.0-rc.1+build").Prerelease())
	assert.Equal(t, "", MustParse("1.0.0").Prerelease())
}

func TestPolicyCheck(t *testing.T) {
	tests := []struct {
		policy   Policy
		existing string
		incoming string
		want     Decision
	}{
		{Strict, "1.2.0", "1.3.0", Allow},
		{Strict, "1.2.0", "1.0.0", RejectDowngrade},
		{Strict, "1.2.0", "1.2.0", RejectIdentical},
		{Strict, "1.2.0", "1.2.0+rebuild", RejectIdentical},
		{Strict, "1.2.0", "1.3.0-beta", Allow},
		{Strict, "1.2.0", "1.2.0-rc.1", RejectDowngrade},
		{AllowReinstall, "1.2.0", "1.2.0", Allow},
		{AllowReinstall, "1.2.0", "1.1.9", RejectDowngrade},
		{AllowAny, "1.2.0", "0.1.0", Allow},
	}

	for _, tt := range tests {
		got := tt.policy.Check(MustParse(tt.existing), MustParse(tt.incoming))
		assert.Equal(t, tt.want, got, "%s: %s -> %s", tt.policy, tt.existing, tt.incoming)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParsePolicy("allow-any")
	require.NoError(t, err)
	assert.Equal(t, AllowAny, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
