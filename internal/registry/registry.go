package registry

// Registry 记录一次 run 中出现过的相机型号：去重 + 保留首次出现顺序。
//
// 只有 run goroutine 访问它，因此不加锁；对外展示用 List 的副本。
type Registry struct {
	index map[string]int
	order []string
}

func New() *Registry {
	return &Registry{
		index: make(map[string]int, 16),
		order: make([]string, 0, 16),
	}
}

// Record 登记一个型号；首次出现返回 true。
func (r *Registry) Record(model string) bool {
	if _, ok := r.index[model]; ok {
		return false
	}
	r.index[model] = len(r.order)
	r.order = append(r.order, model)
	return true
}

// List 按首次出现顺序返回所有型号（副本）。
func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }
