package domain

// DestinationPlan 是一次 relocate 的目标根目录规划（每次 run 只计算一次）。
//
// 约束：
// - ResolvedTargetRoot 在被选中时必须不存在
// - 本次 run 移动的所有文件都必须落在 ResolvedTargetRoot 之下
type DestinationPlan struct {
	CameraName         string
	ResolvedTargetRoot string
}
