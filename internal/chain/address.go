package chain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroAddress 零地址
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsValidAddress 校验是否为合法的非零地址
func IsValidAddress(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	return common.HexToAddress(addr) != (common.Address{})
}

// Normalize 将地址规范化为校验和格式
func Normalize(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// SameAddress 地址比较，忽略大小写
func SameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// DeriveAddress 根据部署者地址与nonce推导合约地址
func DeriveAddress(deployer string, nonce uint64) string {
	return crypto.CreateAddress(common.HexToAddress(deployer), nonce).Hex()
}

// TxHash 生成事件记录的交易哈希
// 以合约地址、事件类型、序号与时间戳做keccak256
func TxHash(contract string, eventType string, seq int64, at time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d|%d", strings.ToLower(contract), eventType, seq, at.UnixNano())
	return common.BytesToHash(crypto.Keccak256([]byte(payload))).Hex()
}
