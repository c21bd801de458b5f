// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和翻译功能
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"unauthorized":          "未授权",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",
			"too_many_requests":     "请求过于频繁",
			"service_unavailable":   "服务不可用",

			"file_not_found":        "文件未找到",
			"file_upload_failed":    "文件上传失败",
			"file_delete_failed":    "文件删除失败",
			"file_read_failed":      "文件读取失败",
			"file_size_too_large":   "文件大小超限",
			"file_type_not_allowed": "文件类型不允许",
			"quota_exceeded":        "存储配额不足",
			"share_not_found":       "分享不存在或已禁用",
			"tag_not_found":         "标签未找到",
			"tag_already_exists":    "标签已存在",
			"tag_owner_mismatch":    "标签与文件不属于同一用户",

			"storage_config_not_found":       "存储配置未找到",
			"storage_config_invalid":         "存储配置无效",
			"storage_connection_failed":      "存储连接失败",
			"storage_write_failed":           "对象写入失败",
			"storage_read_failed":            "对象读取失败",
			"storage_delete_failed":          "对象删除失败",
			"storage_list_failed":            "对象列表获取失败",
			"storage_provider_not_supported": "存储提供商不支持",

			"database_query":        "数据库查询错误",
			"database_insert":       "数据库插入错误",
			"database_update":       "数据库更新错误",
			"database_delete":       "数据库删除错误",
			"record_not_found":      "记录未找到",
			"record_already_exists": "记录已存在",

			"embedding_disabled":  "向量后端未配置",
			"embedding_failed":    "嵌入生成失败",
			"vector_index_failed": "向量索引操作失败",
			"index_degraded":      "向量检索不可用，已降级为词法检索",
			"adoption_skipped":    "未找到可认领孤儿文件的管理员",
			"sync_in_progress":    "对账清扫正在进行中",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"unauthorized":          "Unauthorized",
			"forbidden":             "Forbidden",
			"not_found":             "Resource Not Found",
			"too_many_requests":     "Too Many Requests",
			"service_unavailable":   "Service Unavailable",

			"file_not_found":        "File Not Found",
			"file_upload_failed":    "File Upload Failed",
			"file_delete_failed":    "File Delete Failed",
			"file_read_failed":      "File Read Failed",
			"file_size_too_large":   "File Size Too Large",
			"file_type_not_allowed": "File Type Not Allowed",
			"quota_exceeded":        "Storage Quota Exceeded",
			"share_not_found":       "Share Not Found or Disabled",
			"tag_not_found":         "Tag Not Found",
			"tag_already_exists":    "Tag Already Exists",
			"tag_owner_mismatch":    "Tag And File Belong To Different Users",

			"storage_config_not_found":       "Storage Config Not Found",
			"storage_config_invalid":         "Storage Config Invalid",
			"storage_connection_failed":      "Storage Connection Failed",
			"storage_write_failed":           "Object Write Failed",
			"storage_read_failed":            "Object Read Failed",
			"storage_delete_failed":          "Object Delete Failed",
			"storage_list_failed":            "Object List Failed",
			"storage_provider_not_supported": "Storage Provider Not Supported",

			"database_query":        "Database Query Error",
			"database_insert":       "Database Insert Error",
			"database_update":       "Database Update Error",
			"database_delete":       "Database Delete Error",
			"record_not_found":      "Record Not Found",
			"record_already_exists": "Record Already Exists",

			"embedding_disabled":  "Vector Backend Not Configured",
			"embedding_failed":    "Embedding Generation Failed",
			"vector_index_failed": "Vector Index Operation Failed",
			"index_degraded":      "Vector Search Unavailable, Degraded To Lexical Search",
			"adoption_skipped":    "No Admin Available To Adopt Orphan File",
			"sync_in_progress":    "Reconcile Sweep Already Running",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	// 创建通用翻译器
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, enUS, zhCN)

	// 注册支持的语言 - 使用locale库的标识符
	langMappings := map[string]string{
		LangZhCN: "zh",    // 中文使用 "zh"
		LangEnUS: "en_US", // 英文使用 "en_US"
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	// 查找翻译
	if translation, found := translations[lang][key]; found {
		return translation
	}

	// 如果当前语言没有找到，尝试在默认语言中查找
	if lang != i.defaultLang {
		if translation, found := translations[i.defaultLang][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.defaultLang = lang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := translations[lang]
	return exists
}
