package ui

import (
	"context"
	"errors"
)

var errOffline = errors.New("connection refused")

type offlineConn struct{}

func (offlineConn) Connect(context.Context) error { return errOffline }

func (offlineConn) IsConnected() bool { return false }
