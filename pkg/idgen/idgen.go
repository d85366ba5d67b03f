// Package idgen 提供基于 snowflake 的业务 ID 生成
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init 初始化 snowflake 节点，节点编号取值范围 0-1023
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// GenID 生成全局唯一 ID；未显式初始化时使用节点 0
func GenID() int64 {
	if node == nil {
		if err := Init(0); err != nil {
			panic(fmt.Sprintf("idgen: snowflake init failed: %v", err))
		}
	}
	return node.Generate().Int64()
}
