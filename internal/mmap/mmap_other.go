//go:build !unix

package mmap

import (
	"errors"
	"os"
)

func mapFile(_ *os.File, _ int) ([]byte, error) {
	return nil, errors.New("mmap: not supported on this platform")
}

func unmapFile(_ []byte) error {
	return nil
}
