package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/dgellow/authgate/internal/idp"
)

// MockConnector is an idp.Connector driven by testify expectations
type MockConnector struct {
	mock.Mock
	ProviderConfig idp.ProviderConfig
}

// NewMockConnector returns a connector registered as provider p
func NewMockConnector(p idp.Provider) *MockConnector {
	return &MockConnector{ProviderConfig: idp.ProviderConfig{
		Provider: p,
		ClientID: string(p) + "-client",
	}}
}

func (m *MockConnector) Config() idp.ProviderConfig {
	return m.ProviderConfig
}

func (m *MockConnector) AuthURL(state, redirectURI string) string {
	args := m.Called(state, redirectURI)
	return args.String(0)
}

func (m *MockConnector) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockConnector) UserInfo(ctx context.Context, token *oauth2.Token) (*idp.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.Identity), args.Error(1)
}

var _ idp.Connector = (*MockConnector)(nil)
