// Package decoder labels transaction payloads by their 4-byte function
// selector. Decoding never fails: anything outside the catalog, including
// payloads too short to carry a selector, resolves to LabelUnknown.
package decoder

import "encoding/hex"

// LabelUnknown is returned for empty payloads, plain value transfers and
// selectors outside the catalog.
const LabelUnknown = "unknown"

// catalog maps well-known selectors to their function signatures. Covers
// the common token and liquidity-pool entry points.
var catalog = map[string]string{
	"a9059cbb": "transfer(address,uint256)",
	"095ea7b3": "approve(address,uint256)",
	"23b872dd": "transferFrom(address,address,uint256)",
	"70a08231": "balanceOf(address)",
	"dd62ed3e": "allowance(address,address)",
	"18160ddd": "totalSupply()",
	"06fdde03": "name()",
	"95d89b41": "symbol()",
	"313ce567": "decimals()",
	"022c0d9f": "swap(uint256,uint256,address,bytes)",
	"e8e33700": "addLiquidity(address,address,uint256,uint256)",
	"2e1a7d4d": "withdraw(uint256)",
	"d0e30db0": "deposit()",
}

// Label resolves input to a catalog signature, or LabelUnknown.
func Label(input []byte) string {
	if len(input) < 4 {
		return LabelUnknown
	}
	if sig, ok := catalog[hex.EncodeToString(input[:4])]; ok {
		return sig
	}
	return LabelUnknown
}

// Selector reports the payload's selector as lowercase hex without the 0x
// prefix. ok is false when the payload is too short to carry one.
func Selector(input []byte) (string, bool) {
	if len(input) < 4 {
		return "", false
	}
	return hex.EncodeToString(input[:4]), true
}
