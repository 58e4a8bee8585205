package domain

// TokenStorageKey is the fixed name the encrypted bank token is kept under.
const TokenStorageKey = "gold_secure_plaid_token"

// EncryptedPayload is the output of the vault cipher. Both fields are
// standard base64; the AEAD tag is appended to the ciphertext. There is no
// key id or version because a single static key is used.
type EncryptedPayload struct {
	Ciphertext string `json:"encrypted"`
	Nonce      string `json:"iv"`
}
