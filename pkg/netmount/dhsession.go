package netmount

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/crypto/hkdf"
)

// dhGroupPrime is RFC 2409's Second Oakley Group, the 1024-bit MODP
// group the freedesktop Secret Service spec mandates for its
// "dh-ietf1024-sha256-aes128-cbc-pkcs7" session algorithm.
const dhGroupPrimeHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B" +
	"302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B" +
	"0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381" +
	"FFFFFFFFFFFFFFFF"

const dhEncryptedAlgorithm = "dh-ietf1024-sha256-aes128-cbc-pkcs7"

var dhGroupPrime = mustParsePrime(dhGroupPrimeHex)
var dhGroupGenerator = big.NewInt(2)

func mustParsePrime(hexStr string) *big.Int {
	p, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		panic("netmount: invalid DH group prime")
	}
	return p
}

// dhSession is one negotiated Secret Service session: a shared AES-128
// key derived from a Diffie-Hellman exchange, used to encrypt every
// secret value sent to or read from the session's object path for the
// life of the D-Bus connection.
type dhSession struct {
	path   dbus.ObjectPath
	aesKey []byte
}

// openEncryptedSession negotiates the Secret Service's encrypted
// transport: a fresh DH keypair is generated, the public half is sent
// to Service.OpenSession, and the returned server public value is
// combined with the private half to derive a shared AES-128 key via
// HKDF-SHA256, matching the algorithm the spec names.
func openEncryptedSession(conn *dbus.Conn) (*dhSession, error) {
	private, err := rand.Int(rand.Reader, dhGroupPrime)
	if err != nil {
		return nil, fmt.Errorf("netmount: generate DH private value: %w", err)
	}
	clientPublic := new(big.Int).Exp(dhGroupGenerator, private, dhGroupPrime)

	service := conn.Object(secretsService, dbus.ObjectPath(secretsBasePath))
	var serverPublicBytes []byte
	var sessionPath dbus.ObjectPath
	call := service.Call(secretsService+".Service.OpenSession", 0,
		dhEncryptedAlgorithm, dbus.MakeVariant(clientPublic.Bytes()))
	if call.Err != nil {
		return nil, fmt.Errorf("netmount: open secret service session: %w", call.Err)
	}
	var output dbus.Variant
	if err := call.Store(&output, &sessionPath); err != nil {
		return nil, err
	}
	serverPublicBytes, ok := output.Value().([]byte)
	if !ok {
		return nil, fmt.Errorf("netmount: secret service returned a non-byte-array session output")
	}
	serverPublic := new(big.Int).SetBytes(serverPublicBytes)

	shared := new(big.Int).Exp(serverPublic, private, dhGroupPrime)

	aesKey := make([]byte, 16)
	kdf := hkdf.New(sha256.New, shared.Bytes(), nil, nil)
	if _, err := io.ReadFull(kdf, aesKey); err != nil {
		return nil, fmt.Errorf("netmount: derive session key: %w", err)
	}

	return &dhSession{path: sessionPath, aesKey: aesKey}, nil
}

// encrypt pads plaintext with PKCS#7 and encrypts it under a fresh
// random IV, returning (iv, ciphertext) the way Secret.Item.GetSecret's
// Parameters/Value pair expects it.
func (s *dhSession) encrypt(plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return iv, ciphertext, nil
}

// decrypt reverses encrypt given the Parameters (IV) and Value
// (ciphertext) fields of a returned Secret struct.
func (s *dhSession) decrypt(iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("netmount: secret ciphertext is not block-aligned")
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return pkcs7Unpad(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("netmount: empty padded secret")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("netmount: invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}

// sessionOnce lazily negotiates the encrypted session the first time a
// DBusSecretStore needs it, since construction happens before the bus
// connection is necessarily ready for a round trip.
type sessionOnce struct {
	once    sync.Once
	session *dhSession
	err     error
}

func (o *sessionOnce) get(conn *dbus.Conn) (*dhSession, error) {
	o.once.Do(func() {
		o.session, o.err = openEncryptedSession(conn)
	})
	return o.session, o.err
}
