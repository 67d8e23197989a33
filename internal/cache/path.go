package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"path/filepath"
)

const (
	shard1Len = 1
	shard2Len = 2
)

// DerivePath 是纯函数：相同的 root/key/ext 永远得到相同路径，不依赖任何实例状态。
// 布局为 <root>/<hash[0:1]>/<hash[1:3]>/<hash><ext>。
func DerivePath(root, key, ext string) (string, error) {
	if key == "" {
		return "", errors.New("key is empty")
	}
	sum := digest(key)
	if len(sum) < shard1Len+shard2Len {
		return "", errors.New("digest too short")
	}
	first := sum[:shard1Len]
	second := sum[shard1Len : shard1Len+shard2Len]
	return filepath.Join(root, first, second, sum+ext), nil
}

func digest(key string) string {
	sum := md5.Sum([]byte(key)) //nolint:gosec // content addressing only
	return hex.EncodeToString(sum[:])
}
