// Package ethr resolves did:ethr identifiers against an ERC-1056
// EthereumDIDRegistry contract.
//
// Only contract reads are performed. The document is derived from the
// identity's current owner:
//   - a #controller recovery method bound to eip155:<chainId>:<owner>
//   - a #controllerKey with the public key, when the identifier is a public
//     key that still owns itself
//
// An owner of 0x0 means the identity was deactivated and is reported as not found.
package ethr

import (
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pilacorp/go-didjwt-sdk/did"
	"github.com/pilacorp/go-didjwt-sdk/network"
	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

//go:embed ethr_did_registry_abi.json
var registryABIJSON []byte

var (
	parsedABI    abi.ABI
	parseABIOnce sync.Once
	errParseABI  error
)

// loadABI parses the embedded registry ABI exactly once.
func loadABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		type hardhatArtifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		var artifact hardhatArtifact
		if err := json.Unmarshal(registryABIJSON, &artifact); err != nil {
			errParseABI = fmt.Errorf("failed to unmarshal artifact JSON: %w", err)
			return
		}
		parsedABI, errParseABI = abi.JSON(strings.NewReader(string(artifact.ABI)))
	})

	return parsedABI, errParseABI
}

var documentContext = []string{
	"https://www.w3.org/ns/did/v1",
	"https://w3id.org/security/suites/secp256k1recovery-2020/v2",
}

// Registry reads DID owners from one network's registry contract.
type Registry struct {
	contract *bind.BoundContract
	network  network.Network
}

// New binds the registry of n through caller.
func New(n network.Network, caller bind.ContractCaller) (*Registry, error) {
	if !common.IsHexAddress(n.Registry) {
		return nil, fmt.Errorf("network %s: invalid registry address %q", n.Name, n.Registry)
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, err
	}

	return &Registry{
		contract: bind.NewBoundContract(common.HexToAddress(n.Registry), contractABI, caller, nil, nil),
		network:  n,
	}, nil
}

// Dial connects to the network's JSON-RPC endpoint using httpClient and binds the registry.
// Dialing over HTTP is lazy, so an unreachable node only fails on the first lookup.
func Dial(ctx context.Context, n network.Network, httpClient *http.Client) (*Registry, error) {
	rpcClient, err := rpc.DialOptions(ctx, n.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s rpc: %w", n.Name, err)
	}
	return New(n, ethclient.NewClient(rpcClient))
}

// Lookup builds the current DID document of d.
func (r *Registry) Lookup(ctx context.Context, d did.DID) (*did.Document, error) {
	identity, pubKeyHex, err := parseIdentifier(d.Identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sentinel.ErrDIDNotFound, d, err)
	}

	owner, err := r.identityOwner(ctx, identity)
	if err != nil {
		return nil, err
	}
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: %s is deactivated", sentinel.ErrDIDNotFound, d)
	}

	changed, err := r.changed(ctx, identity)
	if err != nil {
		return nil, err
	}

	return r.document(d.String(), owner, pubKeyHex, identity, changed), nil
}

func (r *Registry) document(id string, owner common.Address, pubKeyHex string, identity common.Address, changed *big.Int) *did.Document {
	controller := id + "#controller"
	doc := &did.Document{
		Context: documentContext,
		ID:      id,
		VerificationMethod: []did.VerificationMethod{{
			ID:                  controller,
			Type:                did.TypeSecp256k1RecoveryMethod,
			Controller:          id,
			BlockchainAccountID: fmt.Sprintf("eip155:%d:%s", r.network.ChainID, owner.Hex()),
		}},
		Authentication:  []string{controller},
		AssertionMethod: []string{controller},
	}

	if pubKeyHex != "" && owner == identity {
		key := id + "#controllerKey"
		doc.VerificationMethod = append(doc.VerificationMethod, did.VerificationMethod{
			ID:           key,
			Type:         did.TypeSecp256k1VerificationKey,
			Controller:   id,
			PublicKeyHex: pubKeyHex,
		})
		doc.Authentication = append(doc.Authentication, key)
		doc.AssertionMethod = append(doc.AssertionMethod, key)
	}

	if changed != nil && changed.Sign() > 0 {
		doc.Metadata = map[string]any{"versionId": changed.String()}
	}
	return doc
}

func (r *Registry) identityOwner(ctx context.Context, identity common.Address) (common.Address, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "identityOwner", identity); err != nil {
		return common.Address{}, fmt.Errorf("identityOwner call on %s failed: %w", r.network.Name, err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("identityOwner returned no data")
	}

	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output type: %T", out[0])
	}
	return owner, nil
}

func (r *Registry) changed(ctx context.Context, identity common.Address) (*big.Int, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "changed", identity); err != nil {
		return nil, fmt.Errorf("changed call on %s failed: %w", r.network.Name, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("changed returned no data")
	}

	block, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type: %T", out[0])
	}
	return block, nil
}

// parseIdentifier accepts an address or a hex public key. For a public key it
// also returns the key in compressed hex form.
func parseIdentifier(identifier string) (common.Address, string, error) {
	if common.IsHexAddress(identifier) {
		return common.HexToAddress(identifier), "", nil
	}

	raw := strings.TrimPrefix(identifier, "0x")
	if _, err := hex.DecodeString(raw); err != nil {
		return common.Address{}, "", fmt.Errorf("identifier is neither an address nor a public key")
	}
	pub, err := did.ParsePublicKeyHex(raw)
	if err != nil {
		return common.Address{}, "", err
	}
	return crypto.PubkeyToAddress(*pub), "0x" + hex.EncodeToString(crypto.CompressPubkey(pub)), nil
}
