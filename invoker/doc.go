// Package invoker defines the provider-agnostic abstraction for executing a
// single agent node against a language model backend.
//
// Core goals:
//   - Keep the request/result shapes minimal and transport independent
//   - Normalize token accounting and thought-signature capture across vendors
//   - Facilitate lightweight mocking for tests (MockInvoker)
//
// Providers (e.g. Anthropic, OpenAI) implement the Invoker interface from
// this package so the orchestration engine remains decoupled from vendor
// SDKs.
package invoker
