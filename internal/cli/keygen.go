package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/model"
)

type keyPair struct {
	PrivateKey model.PrivateKey `json:"privateKey"`
	PublicKey  model.PublicKey  `json:"publicKey"`
}

func newKeygenCommand() *cobra.Command {
	var keyType string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a charge point identity key",
		Long: `Generate a signing key for the charge point identity. The private key
value goes into ` + config.EnvPrefix + `CHARGE_POINT__PRIVATE_KEY, the public key is
registered with the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := generateKeyPair(model.KeyType(keyType))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pair)
		},
	}

	cmd.Flags().StringVar(&keyType, "type", string(model.KeyTypeEd25519), "key type (ed25519|ecP256)")
	return cmd
}

func generateKeyPair(kt model.KeyType) (*keyPair, error) {
	key, err := model.GenerateKey(kt)
	if err != nil {
		return nil, fmt.Errorf("generate %s key: %w", kt, err)
	}

	priv, err := model.EncodePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	pub, err := model.EncodePublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	return &keyPair{PrivateKey: priv, PublicKey: pub}, nil
}
