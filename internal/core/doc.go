// Package core provides the conversion service used by the web server.
//
// It sits between transports and the pure conversion packages: handlers
// hand it a file name and a byte stream, and it returns CSV text or an error
// that [MapError] can turn into a user-facing message.
//
// # Flow
//
//  1. [Service.Convert] checks the file name and the null policy override.
//  2. A slot is taken from the [ConversionLimiter]; when every slot stays busy
//     for CONVERT_MAX_WAIT_TIME the request fails with [ErrTooManyConversions].
//  3. The ingest package reads, decodes, parses and validates the document.
//  4. The convert package flattens records and encodes the CSV.
//  5. The attempt is written to the history store, successful or not.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - FILE001-FILE006: upload and file errors (size, type, encoding)
//   - JSON001-JSON003: document errors (syntax, structure, no records)
//   - UPL001-UPL005: conversion errors (busy, cancelled, timeout)
//   - RATE001: rate limiting
//
// # History
//
// Every attempt is recorded with its outcome, size and client. History older
// than HISTORY_RETENTION is pruned by [Service.StartRetentionScheduler].
package core
