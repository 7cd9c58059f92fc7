package transport

import (
	"path/filepath"

	bridgeerrors "sps-bridge/errors"
)

// Discover 枚举匹配 glob 的 USBTMC 设备节点。
// 参数：
// - glob: 设备通配（如 /dev/usbtmc*）
// 返回：
// - []string: 匹配到的设备路径（glob 结果本身有序）
// - error: 通配格式非法
func Discover(glob string) ([]string, error) {
	devs, err := filepath.Glob(glob)
	if err != nil {
		return nil, bridgeerrors.Wrap(bridgeerrors.CodeDeviceDiscovery, "bad device glob", err)
	}
	return devs, nil
}
