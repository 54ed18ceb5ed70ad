package models

import "fmt"

// AuthKind names the credential shape a merchant configured for a connector.
type AuthKind string

const (
	AuthHeaderKey    AuthKind = "header_key"
	AuthBodyKey      AuthKind = "body_key"
	AuthSignatureKey AuthKind = "signature_key"
	AuthNoKey        AuthKind = "no_key"
)

// ConnectorAuthType is loaded from merchant configuration per call and is
// never mutated.
type ConnectorAuthType struct {
	Kind      AuthKind `json:"auth_type"`
	APIKey    Secret   `json:"api_key"`
	Key1      Secret   `json:"key1"`
	APISecret Secret   `json:"api_secret"`
}

// HeaderKey is a single API key sent as a header.
func HeaderKey(apiKey string) ConnectorAuthType {
	return ConnectorAuthType{Kind: AuthHeaderKey, APIKey: NewSecret(apiKey)}
}

// BodyKey is an API key paired with a client or merchant id.
func BodyKey(apiKey, key1 string) ConnectorAuthType {
	return ConnectorAuthType{Kind: AuthBodyKey, APIKey: NewSecret(apiKey), Key1: NewSecret(key1)}
}

// SignatureKey adds a secret used to sign each request.
func SignatureKey(apiKey, key1, apiSecret string) ConnectorAuthType {
	return ConnectorAuthType{
		Kind:      AuthSignatureKey,
		APIKey:    NewSecret(apiKey),
		Key1:      NewSecret(key1),
		APISecret: NewSecret(apiSecret),
	}
}

func authMismatch(want, got AuthKind) error {
	return &ConnectorError{
		Kind: ErrKindFailedToObtainAuthType,
		Err:  fmt.Errorf("expected %s, configured %s", want, got),
	}
}

// AsHeaderKey resolves the single api key shape.
func (a ConnectorAuthType) AsHeaderKey() (Secret, error) {
	if a.Kind != AuthHeaderKey || a.APIKey.IsEmpty() {
		return Secret{}, authMismatch(AuthHeaderKey, a.Kind)
	}
	return a.APIKey, nil
}

// AsBodyKey resolves the {api_key, key1} shape.
func (a ConnectorAuthType) AsBodyKey() (apiKey, key1 Secret, err error) {
	if a.Kind != AuthBodyKey || a.APIKey.IsEmpty() || a.Key1.IsEmpty() {
		return Secret{}, Secret{}, authMismatch(AuthBodyKey, a.Kind)
	}
	return a.APIKey, a.Key1, nil
}

// AsSignatureKey resolves the {api_key, key1, api_secret} shape.
func (a ConnectorAuthType) AsSignatureKey() (apiKey, key1, apiSecret Secret, err error) {
	if a.Kind != AuthSignatureKey || a.APIKey.IsEmpty() || a.Key1.IsEmpty() || a.APISecret.IsEmpty() {
		return Secret{}, Secret{}, Secret{}, authMismatch(AuthSignatureKey, a.Kind)
	}
	return a.APIKey, a.Key1, a.APISecret, nil
}
