package security

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := []string{
		"0123456789abcdef",                                                 // 16 raw bytes
		"0123456789abcdef0123456789abcdef",                                 // 32 hex chars -> 16 bytes
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", // 64 hex chars -> 32 bytes
	}

	for _, key := range keys {
		encrypted, err := Encrypt("guest state payload", key)
		if err != nil {
			t.Fatalf("key %q: encrypt failed: %v", key, err)
		}
		decrypted, err := Decrypt(encrypted, key)
		if err != nil {
			t.Fatalf("key %q: decrypt failed: %v", key, err)
		}
		if decrypted != "guest state payload" {
			t.Fatalf("key %q: round trip produced %q", key, decrypted)
		}
	}
}

func TestEncryptRejectsBadKey(t *testing.T) {
	if _, err := Encrypt("data", ""); err == nil {
		t.Fatal("empty key must be rejected")
	}
	if _, err := Encrypt("data", "short"); err == nil {
		t.Fatal("short key must be rejected")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	const key = "0123456789abcdef"

	encrypted, err := Encrypt("data", key)
	if err != nil {
		t.Fatal(err)
	}

	tampered := []byte(encrypted)
	tampered[len(tampered)-5] ^= 1
	if _, err := Decrypt(string(tampered), key); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}

	if _, err := Decrypt("AAAA", key); err == nil {
		t.Fatal("truncated ciphertext must be rejected")
	}
	if _, err := Decrypt("%%%not base64%%%", key); err == nil {
		t.Fatal("non-base64 input must be rejected")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encrypted, err := Encrypt("data", "0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(encrypted, "fedcba9876543210"); err == nil {
		t.Fatal("wrong key must not decrypt")
	}
}
