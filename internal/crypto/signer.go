// Package crypto provides settlement-receipt attestation signing and
// encrypted key storage for the attestation key.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer attests settlement receipts with a secp256k1 key. The signature
// binds the order id, transaction id, and executed price so a decision-log
// entry cannot be altered without detection.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the signer's public address in hex form.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Attest signs the keccak digest of the receipt fields and returns the
// signature as a 0x-prefixed hex string.
func (s *Signer) Attest(orderID, transactionID string, executedPrice float64) (string, error) {
	digest := receiptDigest(orderID, transactionID, executedPrice)

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: sign receipt for order %s: %w", orderID, err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Verify reports whether signature is a valid attestation of the receipt
// fields by the key behind address.
func Verify(address, signature, orderID, transactionID string, executedPrice float64) (bool, error) {
	sigHex := strings.TrimPrefix(signature, "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("crypto/signer: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("crypto/signer: unexpected signature length %d", len(sig))
	}

	digest := receiptDigest(orderID, transactionID, executedPrice)

	pubKey, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return false, fmt.Errorf("crypto/signer: recover public key: %w", err)
	}

	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), address), nil
}

// receiptDigest computes the keccak256 digest of the canonical receipt
// encoding. The price is fixed-point scaled to avoid float formatting
// ambiguity.
func receiptDigest(orderID, transactionID string, executedPrice float64) []byte {
	priceScaled := new(big.Int).SetInt64(int64(math.Round(executedPrice * 1e6)))
	return ethcrypto.Keccak256(
		[]byte(orderID),
		[]byte(transactionID),
		priceScaled.Bytes(),
	)
}
