package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/group"
	"sealcheck.io/sealcheck/internal/testutil"
	"sealcheck.io/sealcheck/internal/topology"
)

type fixture struct {
	platform *testutil.Platform
	proxy    *Proxy
	group    *domain.PrivacyGroup
	manager  *group.Manager
}

func setup(t *testing.T) *fixture {
	t.Helper()
	p := testutil.NewPlatform()
	t.Cleanup(p.Close)

	topo := topology.New([]domain.Node{{ID: "node1", Endpoint: p.URL()}}, time.Second, 5*time.Second)
	topo.Connect(context.Background())

	m := group.NewManager(topo, "pente", group.Timeouts{
		PollInterval:    10 * time.Millisecond,
		ReadyTimeout:    time.Second,
		ReceiptInterval: 10 * time.Millisecond,
		ReceiptTimeout:  time.Second,
	})

	members := []domain.Identity{
		{Name: "alice", HomeNode: "node1", Address: testutil.AddressFor("alice")},
		{Name: "bob", HomeNode: "node1", Address: testutil.AddressFor("bob")},
	}
	g, err := m.Create(context.Background(), "alpha", members)
	require.NoError(t, err)
	require.NoError(t, m.AwaitReady(context.Background(), g))

	return &fixture{
		platform: p,
		proxy:    NewProxy(topo, 10*time.Millisecond, time.Second),
		group:    g,
		manager:  m,
	}
}

func alice() domain.Identity {
	return domain.Identity{Name: "alice", HomeNode: "node1"}
}

func mallory() domain.Identity {
	return domain.Identity{Name: "mallory", HomeNode: "node1"}
}

func TestWriteThenRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	w := f.proxy.Write(ctx, f.group, alice(), "42")
	require.Equal(t, domain.ActualSuccess, w.Kind, "member write should succeed: %+v", w)

	r := f.proxy.Read(ctx, f.group, domain.Identity{Name: "bob", HomeNode: "node1"})
	require.Equal(t, domain.ActualSuccess, r.Kind)
	assert.Equal(t, "42", r.Value, "commit-confirmed read must observe the write")
}

func TestWrite_NonMemberDenied(t *testing.T) {
	f := setup(t)

	w := f.proxy.Write(context.Background(), f.group, mallory(), "evil")
	assert.Equal(t, domain.ActualDenied, w.Kind, "non-member write must classify Denied, got %+v", w)
	assert.Equal(t, "", f.platform.GroupValue(f.group.ID), "denied write must not mutate state")
}

func TestRead_NonMemberDenied(t *testing.T) {
	f := setup(t)

	r := f.proxy.Read(context.Background(), f.group, mallory())
	assert.Equal(t, domain.ActualDenied, r.Kind)
	assert.NotEmpty(t, r.Reason)
}

func TestRead_AmbiguousErrorIsTransport(t *testing.T) {
	f := setup(t)
	f.platform.AmbiguousErrors = true

	r := f.proxy.Read(context.Background(), f.group, mallory())
	assert.Equal(t, domain.ActualTransport, r.Kind,
		"unclassifiable error text must stay a transport outcome, got %+v", r)
}

func TestWrite_CommitBarrierTimeout(t *testing.T) {
	f := setup(t)
	f.platform.ReceiptAfterPolls = 1000 // receipt never arrives in time

	p := NewProxy(f.proxy.topo, 10*time.Millisecond, 50*time.Millisecond)
	w := p.Write(context.Background(), f.group, alice(), "7")
	assert.Equal(t, domain.ActualTransport, w.Kind,
		"unconfirmed write must never count as Success, got %+v", w)
}

func TestWrite_NodeDown(t *testing.T) {
	p := testutil.NewPlatform()
	p.Close()

	topo := topology.New([]domain.Node{{ID: "node1", Endpoint: p.URL()}}, time.Second, time.Second)
	topo.Connect(context.Background())

	proxy := NewProxy(topo, 10*time.Millisecond, time.Second)
	g := &domain.PrivacyGroup{ID: "0xg", Name: "alpha", Domain: "pente", ContractAddress: "0xc", Status: domain.GroupReady}

	w := proxy.Write(context.Background(), g, alice(), "1")
	assert.Equal(t, domain.ActualTransport, w.Kind)
}
