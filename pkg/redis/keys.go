package redis

import "fmt"

// OrderKey 统一约定订单 hash 键名。
func OrderKey(orderID string) string {
	return fmt.Sprintf("order_service:order:%s", orderID)
}

// RateLimitUserKey 按 user_id 的限流 key。
func RateLimitUserKey(userID string) string {
	return fmt.Sprintf("rate_limit:orders:user:%s", userID)
}

// RateLimitIPKey 无法解析 user_id 时按来源 IP 限流。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate_limit:orders:ip:%s", ip)
}
