package service

import "errors"

var (
	// ErrValidation 入参不符合约定（缺字段、类型错误、空值）
	ErrValidation = errors.New("invalid input")
	// ErrUnauthorized 需要登录的操作没有登录态
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSendFailed 消息写入失败
	ErrSendFailed = errors.New("cannot send message")
	// ErrInvalidCredentials 登录名或密码错误
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrLoginTaken 登录名已被注册
	ErrLoginTaken = errors.New("login already taken")
)
