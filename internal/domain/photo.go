package domain

// PhotoRecord 描述一次遍历中发现的单个照片文件。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Model 在提取后不再修改；分类只依赖 (Model, filter)
// - 记录只在发出事件前存活，引擎不保留索引
type PhotoRecord struct {
	AbsPath string
	RelPath string

	Model    string
	HasModel bool
}
