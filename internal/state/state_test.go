package state

import (
	"testing"

	"github.com/hydrafund/hydrafund-node/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStartsIdle(t *testing.T) {
	s := InitializeState(nil)
	assert.Equal(t, types.StatusIdle, s.GetHeadStatus())
	assert.False(t, s.GetWalletSession().Connected)
}

func TestSetHeadStatusPublishesOnlyOnChange(t *testing.T) {
	s := InitializeState(nil)
	ch := make(chan interface{}, 4)
	s.EventBus.Subscribe(HeadStatusChanged, ch)

	s.SetHeadStatus(types.StatusOpen)
	s.SetHeadStatus(types.StatusOpen)
	s.SetHeadStatus(types.StatusClosed)

	require.Len(t, ch, 2)
	assert.Equal(t, types.StatusOpen, <-ch)
	assert.Equal(t, types.StatusClosed, <-ch)
	assert.Equal(t, types.StatusClosed, s.GetHeadStatus())
}

func TestSetWalletSessionPublishesConnectEvents(t *testing.T) {
	s := InitializeState(nil)
	connected := make(chan interface{}, 1)
	disconnected := make(chan interface{}, 1)
	s.EventBus.Subscribe(WalletConnected, connected)
	s.EventBus.Subscribe(WalletDisconnected, disconnected)

	session := WalletSessionState{
		Connected:     true,
		WalletName:    "nami",
		ChangeAddress: "addr_test1xyz",
	}
	s.SetWalletSession(session)
	require.Len(t, connected, 1)
	assert.Equal(t, session, <-connected)
	assert.Equal(t, session, s.GetWalletSession())

	s.ClearWalletSession()
	require.Len(t, disconnected, 1)
	assert.False(t, s.GetWalletSession().Connected)
}
