package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullRedactsAPIKey(t *testing.T) {
	out := Full(`config: api_key=sk-ABCDEFGHIJ1234567890 ready`)
	assert.Equal(t, `config: api_key=[REDACTED] ready`, out)
}

func TestFullRedactsBearerToken(t *testing.T) {
	out := Full(`Authorization: Bearer abc123DEF456ghi789`)
	assert.Equal(t, `Authorization: bearer [REDACTED]`, out)
}

func TestFullRedactsEmail(t *testing.T) {
	out := Full(`contact jane.doe@example.com for access`)
	assert.Equal(t, `contact [REDACTED-PII] for access`, out)
}

func TestFullPreservesPrivateIP(t *testing.T) {
	out := Full(`bound to 192.168.1.10 and 10.0.0.5`)
	assert.Equal(t, `bound to 192.168.1.10 and 10.0.0.5`, out, "private IPs should be preserved")
}

func TestFullRedactsPublicIP(t *testing.T) {
	out := Full(`upstream is 8.8.8.8 today`)
	assert.Equal(t, `upstream is [REDACTED-PII] today`, out)
}

func TestFullPreservesUUIDThroughPIIPass(t *testing.T) {
	uuid := "550e8400-e29b-41d4-a716-446655440000"
	out := Full("request id " + uuid + " accepted")
	assert.Equal(t, "request id "+uuid+" accepted", out, "uuid should survive PII pass unchanged")
}

func TestFullRedactsHighEntropySubstring(t *testing.T) {
	out := Full("blob value: qX7!mK2pL9zR4vB8nT1wY6sH3jD0")
	assert.NotEqual(t, "blob value: qX7!mK2pL9zR4vB8nT1wY6sH3jD0", out, "expected high-entropy substring to be redacted")
}

func TestFullAllowlistsHexHash(t *testing.T) {
	hash := "a3f5c9e1b2d4f6a8c0e2b4d6f8a0c2e4b6d8f0a2c4e6b8d0f2a4c6e8b0d2f4a6"
	out := Full("sha256: " + hash)
	assert.Equal(t, "sha256: "+hash, out, "hex hash should be allowlisted")
}

// TestFullMixedSecretPIIAndUUID exercises a secret, an SSN-shaped PII
// match, and a UUID in one string, each handled distinctly.
func TestFullMixedSecretPIIAndUUID(t *testing.T) {
	uuid := "550e8400-e29b-41d4-a716-446655440000"
	in := "api_key = sk-abc123defghijklmnop and 555-12-3456 and " + uuid
	out := Full(in)
	assert.Equal(t, "api_key = [REDACTED] and [REDACTED-PII] and "+uuid, out)
}

func TestSanitizePathUnderProjectRoot(t *testing.T) {
	got := SanitizePath("/home/dev/proj/internal/store/store.go", "/home/dev/proj")
	assert.Equal(t, "<project>/internal/store/store.go", got)
}

func TestSanitizePathOutsideProjectRootRedactsUser(t *testing.T) {
	got := SanitizePath("/home/dev/.bashrc", "/home/dev/proj")
	assert.Equal(t, "[USER]/.bashrc", got)
}

func TestSanitizePathNoProjectRoot(t *testing.T) {
	got := SanitizePath(`C:\Users\jane\notes.txt`, "")
	assert.Equal(t, `[USER]\notes.txt`, got)
}

func TestAssemblyOutputAppliesAllLayers(t *testing.T) {
	out := AssemblyOutput(`password=hunter2; contact a@b.com`)
	assert.Equal(t, `password=[REDACTED]; contact [REDACTED-PII]`, out)
}

func TestAssemblyOutputIsIdempotent(t *testing.T) {
	once := Full(`password=hunter2; contact a@b.com`)
	twice := AssemblyOutput(once)
	assert.Equal(t, once, twice, "redaction should be idempotent")
}
