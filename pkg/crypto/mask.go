package crypto

import (
	"regexp"
	"strings"
)

// ========== 数据脱敏方法 ==========

// MaskPhone 手机号脱敏：保留前3位和后4位
func MaskPhone(phone string) string {
	if len(phone) < 7 {
		return MaskFull(phone)
	}
	return phone[:3] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-4:]
}

// MaskEmail 邮箱脱敏：保留首字符和域名
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return MaskFull(email)
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

// MaskIDCard 身份证号脱敏：保留前4位和后4位
func MaskIDCard(idCard string) string {
	if len(idCard) < 8 {
		return MaskFull(idCard)
	}
	return idCard[:4] + strings.Repeat("*", len(idCard)-8) + idCard[len(idCard)-4:]
}

// MaskBankCard 银行卡号脱敏：只保留后4位
func MaskBankCard(card string) string {
	if len(card) < 4 {
		return MaskFull(card)
	}
	return strings.Repeat("*", len(card)-4) + card[len(card)-4:]
}

// MaskName 姓名脱敏：保留姓氏
func MaskName(name string) string {
	runes := []rune(name)
	if len(runes) <= 1 {
		return "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// MaskFull 全量脱敏
func MaskFull(value string) string {
	if value == "" {
		return ""
	}
	return "******"
}

// MaskSecret 密钥脱敏：保留前缀和末尾3位，用于展示API Key等
func MaskSecret(secret string) string {
	if len(secret) <= 6 {
		return MaskFull(secret)
	}
	return secret[:3] + "***" + secret[len(secret)-3:]
}

// MaskCustom 正则脱敏：将匹配内容替换为指定字符串
func MaskCustom(value, pattern, replacement string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(value, replacement), nil
}
