package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// IDSize is the length of generated row ids. Scheme ids in the catalog use
// the same size.
const IDSize = 32

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func NanoID() string {
	return NanoIDSize(IDSize)
}

func NanoIDSize(size int) string {
	if size <= 0 {
		size = IDSize
	}

	return gonanoid.MustGenerate(idAlphabet, size)
}
