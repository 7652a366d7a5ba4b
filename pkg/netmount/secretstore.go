package netmount

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	secretsService   = "org.freedesktop.secrets"
	secretsBasePath  = "/org/freedesktop/secrets"
	secretServiceSchemaName = "org.gnome.keyring.NetworkPassword"
)

// DBusSecretStore implements SecretStore against the freedesktop Secret
// Service (gnome-keyring / kwallet provide this on the session bus).
// Every secret value is carried under the service's encrypted session
// transport (dh-ietf1024-sha256-aes128-cbc-pkcs7), never its plaintext
// "plain" algorithm, since credentials cross the session bus to reach
// it.
type DBusSecretStore struct {
	conn    *dbus.Conn
	session sessionOnce
}

func NewDBusSecretStore(conn *dbus.Conn) *DBusSecretStore {
	return &DBusSecretStore{conn: conn}
}

var _ SecretStore = (*DBusSecretStore)(nil)

func (s *DBusSecretStore) service() dbus.BusObject {
	return s.conn.Object(secretsService, dbus.ObjectPath(secretsBasePath))
}

// Lookup searches the default collection for items matching the
// NetworkPassword schema's (server, protocol) attributes, then reads
// each match's user/domain/password.
func (s *DBusSecretStore) Lookup(ctx context.Context, host, scheme string) ([]Credential, error) {
	attrs := map[string]string{"server": host, "protocol": scheme}
	var unlocked, locked []dbus.ObjectPath
	call := s.service().Call(secretsService+".SearchItems", 0, attrs)
	if call.Err != nil {
		return nil, fmt.Errorf("netmount: secret service search: %w", call.Err)
	}
	if err := call.Store(&unlocked, &locked); err != nil {
		return nil, err
	}

	creds := make([]Credential, 0, len(unlocked))
	for _, path := range unlocked {
		cred, err := s.readItem(path)
		if err != nil {
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func (s *DBusSecretStore) readItem(path dbus.ObjectPath) (Credential, error) {
	sess, err := s.session.get(s.conn)
	if err != nil {
		return Credential{}, fmt.Errorf("netmount: secret service encrypted session: %w", err)
	}

	item := s.conn.Object(secretsService, path)
	var attrs map[string]string
	if err := item.Call("org.freedesktop.DBus.Properties.Get", 0, secretsService+".Item", "Attributes").Store(&attrs); err != nil {
		return Credential{}, err
	}
	var secret struct {
		Session     dbus.ObjectPath
		Parameters  []byte
		Value       []byte
		ContentType string
	}
	call := item.Call(secretsService+".Item.GetSecret", 0, sess.path)
	if call.Err != nil {
		return Credential{}, call.Err
	}
	if err := call.Store(&secret); err != nil {
		return Credential{}, err
	}
	plaintext, err := sess.decrypt(secret.Parameters, secret.Value)
	if err != nil {
		return Credential{}, fmt.Errorf("netmount: decrypt secret: %w", err)
	}
	return Credential{
		User:     attrs["user"],
		Domain:   attrs["domain"],
		Password: string(plaintext),
	}, nil
}

// collectionPathFor maps a SavePolicy to the collection the credential
// should be written into: the session-only collection for SaveSession,
// the default (persistent) collection for SavePermanent.
func collectionPathFor(policy SavePolicy) dbus.ObjectPath {
	if policy == SaveSession {
		return "/org/freedesktop/secrets/collection/session"
	}
	return "/org/freedesktop/secrets/collection/login"
}

// Save stores cred under the NetworkPassword schema, keyed by the same
// (server, protocol, user, domain) attribute tuple Lookup searches on.
func (s *DBusSecretStore) Save(ctx context.Context, host, scheme string, cred Credential, policy SavePolicy) error {
	if policy == SaveNever {
		return nil
	}
	sess, err := s.session.get(s.conn)
	if err != nil {
		return fmt.Errorf("netmount: secret service encrypted session: %w", err)
	}
	iv, ciphertext, err := sess.encrypt([]byte(cred.Password))
	if err != nil {
		return fmt.Errorf("netmount: encrypt secret: %w", err)
	}

	collection := s.conn.Object(secretsService, collectionPathFor(policy))
	properties := map[string]dbus.Variant{
		"org.freedesktop.Secret.Item.Label": dbus.MakeVariant(fmt.Sprintf("%s credentials for %s", scheme, host)),
		"org.freedesktop.Secret.Item.Attributes": dbus.MakeVariant(map[string]string{
			"server":   host,
			"protocol": scheme,
			"user":     cred.User,
			"domain":   cred.Domain,
			"schema":   secretServiceSchemaName,
		}),
	}
	secret := struct {
		Session     dbus.ObjectPath
		Parameters  []byte
		Value       []byte
		ContentType string
	}{
		Session:     sess.path,
		Parameters:  iv,
		Value:       ciphertext,
		ContentType: "text/plain",
	}
	call := collection.Call(secretsService+".Collection.CreateItem", 0, properties, secret, true)
	return call.Err
}
