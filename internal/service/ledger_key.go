package service

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// UsageLedgerID 由 (voucherID, userID, orderID) 推导核销记录幂等键
func UsageLedgerID(voucherID, userID, orderID string) string {
	h, _ := blake2b.New256(nil)
	var size [4]byte
	for _, part := range []string{voucherID, userID, orderID} {
		binary.BigEndian.PutUint32(size[:], uint32(len(part)))
		_, _ = h.Write(size[:])
		_, _ = h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
