// Package pemfile creates and loads the SSH host keypair.
package pemfile

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
	gossh "golang.org/x/crypto/ssh"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
)

type KeyParams struct {
	KeyPath       string
	SSHPubKeyPath string
}

// Generate writes a fresh RSA keypair: a PKCS#1 PEM at KeyPath and the
// matching authorized_keys line at SSHPubKeyPath.
func (k KeyParams) Generate() error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	keyBytes := x509.MarshalPKCS1PrivateKey(privateKey)

	if err := os.WriteFile(k.KeyPath, pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: keyBytes,
		}),
		0600,
	); err != nil {
		return pwnedcraft.WithStack(err)
	}

	pub, err := gossh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return pwnedcraft.WithStack(err)
	}
	return pwnedcraft.WithStack(os.WriteFile(k.SSHPubKeyPath, gossh.MarshalAuthorizedKey(pub), 0600))
}

// Ensure returns the PEM encoded private key, generating the keypair
// first when KeyPath does not exist yet.
func (k KeyParams) Ensure() ([]byte, error) {
	if _, err := os.Stat(k.KeyPath); errors.Is(err, os.ErrNotExist) {
		if err := k.Generate(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, pwnedcraft.WithStack(err)
	}
	b, err := os.ReadFile(k.KeyPath)
	return b, pwnedcraft.WithStack(err)
}
