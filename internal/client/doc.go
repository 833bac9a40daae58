// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client runtime.
//
// It wires the local store, the remote gateway, the sync engine and the
// background workers into a single process. Without a subcommand the client
// runs as a sync daemon; subcommands edit records or force a sync.
package client
