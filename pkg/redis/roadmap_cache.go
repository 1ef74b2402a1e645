package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ── 可选课程缓存 ──
//
// 每个学生一个 hash：field 为学期 ID，value 为课程 ID 列表（JSON）。
// 路线条目任何变更都删除整个 hash；缓存只是派生数据，丢失后重新计算。

const openSubjectsPrefix = "roadmap:open:"

func openSubjectsKey(studentID string) string {
	return openSubjectsPrefix + studentID
}

// GetOpenSubjects 读取缓存；未命中时 ok 为 false
func (c *Client) GetOpenSubjects(ctx context.Context, studentID, semesterID string) ([]string, bool, error) {
	raw, err := c.rdb.HGet(ctx, openSubjectsKey(studentID), semesterID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// SetOpenSubjects 写入缓存并刷新整个 hash 的过期时间
func (c *Client) SetOpenSubjects(ctx context.Context, studentID, semesterID string, subjectIDs []string, ttl time.Duration) error {
	if subjectIDs == nil {
		subjectIDs = []string{}
	}
	raw, err := json.Marshal(subjectIDs)
	if err != nil {
		return err
	}
	key := openSubjectsKey(studentID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, semesterID, raw)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateStudent 删除某学生的全部可选课程缓存
func (c *Client) InvalidateStudent(ctx context.Context, studentID string) error {
	return c.rdb.Del(ctx, openSubjectsKey(studentID)).Err()
}
