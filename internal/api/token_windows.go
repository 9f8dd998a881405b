//go:build windows

package api

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

var (
	advapi32           = syscall.NewLazyDLL("advapi32.dll")
	procCredEnumerateW = advapi32.NewProc("CredEnumerateW")
	procCredFree       = advapi32.NewProc("CredFree")
)

// winCredential follows the CREDENTIALW layout from wincred.h.
type winCredential struct {
	Flags          uint32
	Type           uint32
	TargetName     *uint16
	Comment        *uint16
	LastWritten    [8]byte
	BlobSize       uint32
	Blob           uintptr
	Persist        uint32
	AttributeCount uint32
	Attributes     uintptr
	TargetAlias    *uint16
	UserName       *uint16
}

// readPlatformStore scans Credential Manager entries whose target starts with
// the Claude Code label and returns the first blob holding a usable token.
func readPlatformStore(ctx context.Context) ([]byte, error) {
	filter, err := syscall.UTF16PtrFromString(keychainLabel + "*")
	if err != nil {
		return nil, fmt.Errorf("credential filter: %w", err)
	}

	var (
		count uint32
		list  uintptr
	)
	ok, _, callErr := procCredEnumerateW.Call(
		uintptr(unsafe.Pointer(filter)),
		0,
		uintptr(unsafe.Pointer(&count)),
		uintptr(unsafe.Pointer(&list)),
	)
	if ok == 0 {
		return nil, fmt.Errorf("CredEnumerateW: %w", callErr)
	}
	defer procCredFree.Call(list)

	for _, blob := range blobs(list, count) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := parseCredentialJSON(blob); err == nil {
			return append([]byte(nil), blob...), nil
		}
	}
	return nil, errors.New("credential manager holds no usable OAuth token")
}

// blobs views the credential blobs of a CredEnumerateW result. The slices
// alias memory owned by the result and are invalid after CredFree.
func blobs(list uintptr, count uint32) [][]byte {
	creds := unsafe.Slice((**winCredential)(unsafe.Pointer(list)), count)
	out := make([][]byte, 0, count)
	for _, c := range creds {
		if c == nil || c.BlobSize == 0 {
			continue
		}
		out = append(out, unsafe.Slice((*byte)(unsafe.Pointer(c.Blob)), c.BlobSize))
	}
	return out
}
