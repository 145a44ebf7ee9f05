package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := NewEncryptor("adgp-config-encryption-key-32bit")

	ciphertext, err := e.Encrypt("sk-1234567890abcdef")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ciphertext == "sk-1234567890abcdef" {
		t.Fatalf("ciphertext equals plaintext")
	}

	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plaintext != "sk-1234567890abcdef" {
		t.Fatalf("roundtrip mismatch: %q", plaintext)
	}
}

func TestEncryptEmpty(t *testing.T) {
	e := NewEncryptor("adgp-config-encryption-key-32bit")

	ciphertext, err := e.Encrypt("")
	if err != nil || ciphertext != "" {
		t.Fatalf("empty plaintext should stay empty, got %q err %v", ciphertext, err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	e := NewEncryptor("adgp-config-encryption-key-32bit")

	if _, err := e.Decrypt("not-base64!!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := e.Decrypt("YWJj"); err == nil {
		t.Fatalf("expected error for short ciphertext")
	}
}

func TestMaskers(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"phone", MaskPhone("13812345678"), "138****5678"},
		{"email", MaskEmail("zhangsan@example.com"), "z*******@example.com"},
		{"idcard", MaskIDCard("110101199001011234"), "1101**********1234"},
		{"bankcard", MaskBankCard("6222021234567890"), "************7890"},
		{"name", MaskName("张三丰"), "张**"},
		{"full", MaskFull("secret"), "******"},
		{"secret", MaskSecret("sk-1234567890"), "sk-***890"},
		{"short-phone", MaskPhone("123"), "******"},
	}

	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestMaskCustom(t *testing.T) {
	got, err := MaskCustom("order-20240101-998", `\d{8}`, "********")
	if err != nil {
		t.Fatalf("mask custom: %v", err)
	}
	if got != "order-********-998" {
		t.Fatalf("unexpected: %q", got)
	}

	if _, err := MaskCustom("x", `[`, "*"); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}
