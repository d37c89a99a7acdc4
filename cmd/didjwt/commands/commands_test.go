package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-didjwt-sdk/config"
	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/manager"
	"github.com/pilacorp/go-didjwt-sdk/resolver"
)

type harness struct {
	factory *resolver.MemoryFactory
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(manager.WithClientFactory(h.factory.Open))

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestIdentityAndJWT(t *testing.T) {
	h := &harness{factory: resolver.NewMemoryFactory()}

	out, err := h.run(t, "identity", "--network", "bfa")
	require.NoError(t, err)

	var id did.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	assert.True(t, strings.HasPrefix(id.DID, "did:ethr:bfa:0x"))

	out, err = h.run(t, "jwt", "issue", "--issuer", id.DID, "--key", id.PrivateKeyHex, "--claims", `{"name":"TEST"}`)
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	out, err = h.run(t, "jwt", "decode", token)
	require.NoError(t, err)
	var decoded struct {
		Header  map[string]any `json:"header"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "ES256K", decoded.Header["alg"])
	assert.Equal(t, id.DID, decoded.Payload["iss"])

	out, err = h.run(t, "jwt", "verify", token)
	require.NoError(t, err)
	assert.Contains(t, out, `"issuer": "`+id.DID+`"`)
	assert.Contains(t, out, `"signerKey": "`+id.DID+`#controller"`)

	_, err = h.run(t, "jwt", "verify", "garbage")
	assert.Error(t, err)

	_, err = h.run(t, "jwt", "issue", "--issuer", id.DID, "--key", id.PrivateKeyHex, "--claims", `[1]`)
	assert.Error(t, err)
}

func TestCertificateCommands(t *testing.T) {
	h := &harness{factory: resolver.NewMemoryFactory()}

	issuer, err := did.NewIdentity("ethr")
	require.NoError(t, err)
	holder, err := did.NewIdentity("ethr")
	require.NoError(t, err)

	subjectFile := filepath.Join(t.TempDir(), "subject.json")
	require.NoError(t, os.WriteFile(subjectFile, []byte(`{
  "DatosPersonales": {
    "preview": {"fields": ["dni", "names"], "type": 2},
    "category": "identity",
    "data": {"dni": 12345678, "names": "Homero"}
  }
}`), 0o600))

	expires := time.Now().AddDate(1, 0, 0).UTC().Format(time.RFC3339)
	out, err := h.run(t, "cert", "issue",
		"--issuer", issuer.OnNetwork("lacchain"),
		"--key", issuer.PrivateKeyHex,
		"--subject", holder.OnNetwork("lacchain"),
		"--subject-file", subjectFile,
		"--expires", expires,
	)
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	out, err = h.run(t, "cert", "verify", token)
	require.NoError(t, err)

	var cert struct {
		Issuer            string         `json:"issuer"`
		CredentialSubject map[string]any `json:"credentialSubject"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cert))
	assert.Equal(t, issuer.OnNetwork("lacchain"), cert.Issuer)
	assert.Contains(t, cert.CredentialSubject, "DatosPersonales")

	_, err = h.run(t, "cert", "issue",
		"--issuer", issuer.DID, "--key", issuer.PrivateKeyHex, "--subject", holder.DID,
		"--subject-file", subjectFile, "--expires", "tomorrow")
	assert.Error(t, err)
}

func TestNetworksCommand(t *testing.T) {
	h := &harness{factory: resolver.NewMemoryFactory()}

	out, err := h.run(t, "networks")
	require.NoError(t, err)
	for _, name := range []string{"mainnet", "rsk", "lacchain", "bfa"} {
		assert.Contains(t, out, name)
	}

	_, err = h.run(t, "--log-level", "loud", "networks")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	h := &harness{factory: resolver.NewMemoryFactory()}

	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
networks:
  - tag: ""
    name: devnet
    method: ethr
    kind: ethr
    rpcUrl: http://127.0.0.1:8545
    registry: "0xdca7ef03e98e0dc2b855be647c39abe984fcf21b"
    chainId: 1337
`), 0o600))

	out, err := h.run(t, "--config", path, "networks")
	require.NoError(t, err)
	assert.Contains(t, out, "devnet")
	assert.NotContains(t, out, "lacchain")

	_, set := os.LookupEnv(config.EnvNetworksFile)
	assert.False(t, set, "--config must not leak into the environment")

	_, err = h.run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "networks")
	assert.Error(t, err)
}
