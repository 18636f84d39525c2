package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/krause-dao/krause-contract/contracts"
	"github.com/krause-dao/krause-contract/deploy"
	"github.com/krause-dao/krause-contract/internal/config"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// deployChain is the blockchain connection used by the deploy command.
type deployChain interface {
	network() netmode.Magic
	sender() util.Uint160
	toolkit(logger *zap.Logger, set *contracts.Set) deploy.Toolkit
	close()
}

// connectChain opens deployChain for the given account. Tests replace it.
var connectChain = func(ctx context.Context, cfg config.RPC, acc *wallet.Account) (deployChain, error) {
	b, err := newRemoteBlockchain(ctx, cfg, acc)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// rpcClient is implemented by both HTTP and WebSocket Neo RPC clients.
type rpcClient interface {
	actor.RPCActor
	Init() error
	Close()
}

// wrapper over Neo RPC client providing blockchain services needed for the
// deployment.
type remoteBlockchain struct {
	rpc   rpcClient
	actor *actor.Actor
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain
// sending transactions signed by the given account. WebSocket endpoints
// (ws://, wss://) let the actor await transactions by subscription, others
// are polled.
func newRemoteBlockchain(ctx context.Context, cfg config.RPC, acc *wallet.Account) (*remoteBlockchain, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse RPC endpoint: %w", err)
	}

	opts := rpcclient.Options{
		DialTimeout:    cfg.DialTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}

	var c rpcClient

	switch u.Scheme {
	case "ws", "wss":
		c, err = rpcclient.NewWS(ctx, cfg.Endpoint, rpcclient.WSOptions{Options: opts})
	default:
		c, err = rpcclient.New(ctx, cfg.Endpoint, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init actor: %w", err)
	}

	return &remoteBlockchain{
		rpc:   c,
		actor: act,
	}, nil
}

func (x *remoteBlockchain) network() netmode.Magic {
	return x.actor.GetNetwork()
}

func (x *remoteBlockchain) sender() util.Uint160 {
	return x.actor.Sender()
}

func (x *remoteBlockchain) toolkit(logger *zap.Logger, set *contracts.Set) deploy.Toolkit {
	return deploy.NewNeoToolkit(logger, x.actor, set)
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}
