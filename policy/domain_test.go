package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomains(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"instagram.com", "youtube.com"}, NormalizeDomains(" Instagram.com , youtube.com "))
	assert.Equal([]string{"a.com", "a.com"}, NormalizeDomains("a.com,a.com"))
	assert.Nil(NormalizeDomains(""))
	assert.Nil(NormalizeDomains(" , ,"))

	// normalize is idempotent
	for _, raw := range []string{"Spam.com, EXAMPLE.org ,,x.io", "a.com", ""} {
		once := NormalizeDomains(raw)
		twice := NormalizeDomains(strings.Join(once, ","))
		assert.Equal(once, twice)
	}
}

func TestMatchesAny(t *testing.T) {
	assert := assert.New(t)

	assert.True(MatchesAny("https://INSTAGRAM.com/x", []string{"instagram.com"}))
	assert.False(MatchesAny("example.com", []string{"instagram.com"}))
	assert.True(MatchesAny("check out spam.com/promo today", []string{"other.net", "spam.com"}))
	assert.False(MatchesAny("anything", nil))
	assert.False(MatchesAny("", []string{"spam.com"}))
}

func TestValidateDomainList(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateDomainList("instagram.com, youtube.com"))
	assert.NoError(ValidateDomainList("sub.domain.co.uk"))
	assert.Error(ValidateDomainList(""))
	assert.Error(ValidateDomainList("instagram.com, not a domain"))
	assert.Error(ValidateDomainList("nodot"))
	assert.Error(ValidateDomainList("a.com,"))
}
