package service

// AllocateAmount 将捕获金额等额拆分到 n 个目标（按解析得到的稳定顺序）
//
// 前 n-1 份为 floor(captured/n)，最后一份吸收余数，
// 对任意 n >= 1 与非负 captured 保证各份合计严格等于 captured。
func AllocateAmount(captured int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	base := captured / int64(n)
	for i := 0; i < n-1; i++ {
		shares[i] = base
	}
	shares[n-1] = captured - base*int64(n-1)
	return shares
}
