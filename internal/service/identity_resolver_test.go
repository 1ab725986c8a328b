package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehberlik-servisi/rehberlik-api/internal/models"
)

func testRoster() []models.TeacherIdentity {
	return []models.TeacherIdentity{
		{CanonicalID: "t-1", DisplayName: "Ayşe Yılmaz", ClassKey: "5A", ClassDisplay: "5. Sınıf / A Şubesi"},
		{CanonicalID: "t-2", DisplayName: "Mehmet Çelik", ClassKey: "5B", ClassDisplay: "5. Sınıf / B Şubesi"},
		{CanonicalID: "t-3", DisplayName: "Zeynep Şahin", ClassKey: "K1", ClassDisplay: "Anasınıfı K1"},
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := LoadCatalog(testRoster())
	require.NoError(t, err)
	return cat
}

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "5a", "5a"},
		{"separators stripped", "5. Sınıf / A Şubesi", "5sinifasubesi"},
		{"turkish fold", "ÇĞİÖŞÜ çğıöşü", "cgiosucgiosu"},
		{"dotless i uppercase", "SINIF", "sinif"},
		{"dotted capital i", "İzmir", "izmir"},
		{"hyphens and dots", "5-A.", "5a"},
		{"empty", "", ""},
		{"only separators", " / - . ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeToken(tc.in))
		})
	}
}

func TestResolveIdentityExactKey(t *testing.T) {
	cat := testCatalog(t)

	identity := resolveIdentity("K1", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-3", identity.CanonicalID)
}

func TestResolveIdentityExactDisplay(t *testing.T) {
	cat := testCatalog(t)

	identity := resolveIdentity("5. Sınıf / A Şubesi", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-1", identity.CanonicalID)
}

func TestResolveIdentityNormalizedEquality(t *testing.T) {
	cat := testCatalog(t)

	// Same display, typed without diacritics and with different separators.
	identity := resolveIdentity("5.sinif/a subesi", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-1", identity.CanonicalID)
}

func TestResolveIdentityTeacherName(t *testing.T) {
	cat := testCatalog(t)

	identity := resolveIdentity("Mehmet Çelik", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-2", identity.CanonicalID)

	identity = resolveIdentity("mehmet celik", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-2", identity.CanonicalID)
}

func TestResolveIdentityContainment(t *testing.T) {
	cat := testCatalog(t)

	// "5. Sınıf" is a prefix of two class displays; the first declared entry
	// wins.
	identity := resolveIdentity("5. Sınıf", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-1", identity.CanonicalID)
}

func TestResolveIdentityExactBeatsFuzzy(t *testing.T) {
	roster := append(testRoster(), models.TeacherIdentity{
		CanonicalID: "t-4", DisplayName: "Ali Vural", ClassKey: "5. Sınıf / B Şubesi", ClassDisplay: "5B Şubesi",
	})
	cat, err := LoadCatalog(roster)
	require.NoError(t, err)

	// The token is an exact class key of t-4 and an exact display of t-2;
	// the key lookup runs first.
	identity := resolveIdentity("5. Sınıf / B Şubesi", cat)
	require.NotNil(t, identity)
	assert.Equal(t, "t-4", identity.CanonicalID)
}

func TestResolveIdentityUnresolved(t *testing.T) {
	cat := testCatalog(t)

	assert.Nil(t, resolveIdentity("7C", cat))
	assert.Nil(t, resolveIdentity("", cat))
	assert.Nil(t, resolveIdentity("   ", cat))
	assert.Nil(t, resolveIdentity("5A", nil))
}

func TestIdentityResolverMemoises(t *testing.T) {
	resolver := NewIdentityResolver(testCatalog(t))

	first := resolver.Resolve("5.sinif/a subesi")
	require.NotNil(t, first)

	second := resolver.Resolve("5.sinif/a subesi")
	assert.Same(t, first, second)

	// Misses are memoised too.
	assert.Nil(t, resolver.Resolve("9Z"))
	assert.Nil(t, resolver.Resolve("9Z"))
}

func TestIdentityResolverNilReceiver(t *testing.T) {
	var resolver *IdentityResolver
	assert.Nil(t, resolver.Resolve("5A"))
}
