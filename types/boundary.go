package types

import (
	"errors"
	"strings"
)

// ConfigSetupMessage 缺少网络配置时展示给用户的提示
const ConfigSetupMessage = "Please make sure to set up your environment variables correctly. " +
	"Copy .env.template to .env and fill in the required values. " +
	"This controls the network and credentials for connections with the ledger and index nodes."

// configAbsenceSignatures 非结构化错误中表示配置缺失的特征串
var configAbsenceSignatures = []string{
	"missing required environment variables",
	"attempt to get default algod configuration",
}

// IsConfigAbsence 判断错误是否属于配置缺失
func IsConfigAbsence(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfigMissing) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range configAbsenceSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Describe 顶层错误边界的展示文案
// 配置缺失时返回配置指引，否则返回原始错误信息
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if IsConfigAbsence(err) {
		return ConfigSetupMessage
	}
	return err.Error()
}
