package handlers

import (
	"fmt"

	"labassistant/internal/middleware"
)

const (
	msgInvalidPayload = "invalid_payload"
	msgFieldRequired  = "field_required"
	msgInvalidInput   = "invalid_input"
	msgInvalidLevel   = "invalid_level"
	msgUpstreamFailed = "upstream_failed"
	msgCanceled       = "canceled"
	msgUnknownType    = "unknown_message_type"
)

var messages = map[string]map[string]string{
	middleware.LocaleZH: {
		msgInvalidPayload: "请求体不是有效的JSON",
		msgFieldRequired:  "缺少必填字段：%s",
		msgInvalidInput:   "输入内容无效",
		msgInvalidLevel:   "教学阶段只能是 junior 或 senior",
		msgUpstreamFailed: "模型服务调用失败，请稍后重试",
		msgCanceled:       "请求已取消",
		msgUnknownType:    "不支持的消息类型：%s",
	},
	middleware.LocaleEN: {
		msgInvalidPayload: "request body is not valid JSON",
		msgFieldRequired:  "missing required field: %s",
		msgInvalidInput:   "invalid input",
		msgInvalidLevel:   "level must be junior or senior",
		msgUpstreamFailed: "the model service failed, please retry later",
		msgCanceled:       "request canceled",
		msgUnknownType:    "unsupported message type: %s",
	},
}

func localize(locale, key string, args ...any) string {
	table, ok := messages[locale]
	if !ok {
		table = messages[middleware.LocaleZH]
	}
	format, ok := table[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
