package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/example/marketplace/internal/config"
)

// 跑一遍完整流程：A、B 注册登录，A 发布 Bike，B 留言，A 查看收到的留言。
// 需要先启动 web 服务：go run ./cmd/web
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		fmt.Printf("load config failed: %v\n", err)
		os.Exit(1)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	suffix := uuid.NewString()[:8]

	fmt.Println("==========================================")
	fmt.Println("    marketplace demo")
	fmt.Println("==========================================")

	fmt.Println("\n1. 注册并登录卖家 A、买家 B...")
	tokenA := mustSignup(baseURL, "seller-"+suffix, "Alice")
	tokenB := mustSignup(baseURL, "buyer-"+suffix, "Bob")

	fmt.Println("\n2. A 发布物品 Bike...")
	created := mustCall(http.MethodPost, baseURL+"/api/listings", tokenA, map[string]any{
		"name":        "Bike",
		"description": "Red bike",
		"price":       120.5,
	})
	listing, _ := created["data"].(map[string]interface{})
	listingID, _ := listing["id"].(string)
	fmt.Printf("   listing: %v\n", listing)

	fmt.Println("\n3. 匿名查询该物品...")
	got := mustCall(http.MethodGet, baseURL+"/api/listings/"+listingID, "", nil)
	fmt.Printf("   %v\n", got["data"])

	fmt.Println("\n4. B 给 A 留言...")
	sent := mustCall(http.MethodPost, baseURL+"/api/messages", tokenB, map[string]any{
		"message":   "Is this available?",
		"listingId": listingID,
	})
	fmt.Printf("   message: %v\n", sent["data"])

	fmt.Println("\n5. A 查看收到的留言...")
	inbox := mustCall(http.MethodGet, baseURL+"/api/messages", tokenA, nil)
	msgs, _ := inbox["data"].([]interface{})
	for _, m := range msgs {
		fmt.Printf("   %v\n", m)
	}
	if len(msgs) != 1 {
		fmt.Printf("   期望 1 条留言，实际 %d 条\n", len(msgs))
		os.Exit(1)
	}

	fmt.Println("\n==========================================")
	fmt.Println("demo 完成！")
	fmt.Println("==========================================")
}

func mustSignup(baseURL, login, username string) string {
	body := map[string]any{"login": login, "password": "demo-pass", "username": username}
	mustCall(http.MethodPost, baseURL+"/api/register", "", body)
	resp := mustCall(http.MethodPost, baseURL+"/api/login", "", map[string]any{"login": login, "password": "demo-pass"})
	data, _ := resp["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	fmt.Printf("   %s 登录成功\n", login)
	return token
}

func mustCall(method, url, token string, body any) map[string]interface{} {
	resp, err := call(method, url, token, body)
	if err != nil {
		fmt.Printf("   %s %s 失败: %v\n", method, url, err)
		os.Exit(1)
	}
	return resp
}

func call(method, url, token string, body any) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("JSON解析失败: %v, 响应: %s", err, string(bodyBytes))
	}
	return result, nil
}
