package etcd

// LeaderStats /v2/stats/leader，只有 leader 节点返回 200
type LeaderStats struct {
	Leader    string                   `json:"leader"`
	Followers map[string]FollowerStats `json:"followers"`
}

type FollowerStats struct {
	Counts struct {
		Fail    int64 `json:"fail"`
		Success int64 `json:"success"`
	} `json:"counts"`
	Latency struct {
		Average           float64 `json:"average"`
		Current           float64 `json:"current"`
		Maximum           float64 `json:"maximum"`
		Minimum           float64 `json:"minimum"`
		StandardDeviation float64 `json:"standardDeviation"`
	} `json:"latency"`
}

// SelfStats /v2/stats/self
type SelfStats struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	StartTime  string `json:"startTime"`
	LeaderInfo struct {
		Leader    string `json:"leader"`
		StartTime string `json:"startTime"`
		Uptime    string `json:"uptime"`
	} `json:"leaderInfo"`
	RecvAppendRequestCnt int64   `json:"recvAppendRequestCnt"`
	RecvBandwidthRate    float64 `json:"recvBandwidthRate,omitempty"`
	RecvPkgRate          float64 `json:"recvPkgRate,omitempty"`
	SendAppendRequestCnt int64   `json:"sendAppendRequestCnt"`
	SendBandwidthRate    float64 `json:"sendBandwidthRate,omitempty"`
	SendPkgRate          float64 `json:"sendPkgRate,omitempty"`
}

// IsLeader 当前节点是否为 leader
func (s *SelfStats) IsLeader() bool {
	return s.State == "StateLeader"
}

// StoreStats /v2/stats/store
type StoreStats struct {
	GetsSuccess             int64 `json:"getsSuccess"`
	GetsFail                int64 `json:"getsFail"`
	SetsSuccess             int64 `json:"setsSuccess"`
	SetsFail                int64 `json:"setsFail"`
	DeleteSuccess           int64 `json:"deleteSuccess"`
	DeleteFail              int64 `json:"deleteFail"`
	UpdateSuccess           int64 `json:"updateSuccess"`
	UpdateFail              int64 `json:"updateFail"`
	CreateSuccess           int64 `json:"createSuccess"`
	CreateFail              int64 `json:"createFail"`
	CompareAndSwapSuccess   int64 `json:"compareAndSwapSuccess"`
	CompareAndSwapFail      int64 `json:"compareAndSwapFail"`
	CompareAndDeleteSuccess int64 `json:"compareAndDeleteSuccess"`
	CompareAndDeleteFail    int64 `json:"compareAndDeleteFail"`
	ExpireCount             int64 `json:"expireCount"`
	Watchers                int64 `json:"watchers"`
}

// Operations 按操作类型展开 success/fail 计数，key 为操作名
func (s *StoreStats) Operations() map[string][2]int64 {
	return map[string][2]int64{
		"get":                {s.GetsSuccess, s.GetsFail},
		"set":                {s.SetsSuccess, s.SetsFail},
		"delete":             {s.DeleteSuccess, s.DeleteFail},
		"update":             {s.UpdateSuccess, s.UpdateFail},
		"create":             {s.CreateSuccess, s.CreateFail},
		"compare_and_swap":   {s.CompareAndSwapSuccess, s.CompareAndSwapFail},
		"compare_and_delete": {s.CompareAndDeleteSuccess, s.CompareAndDeleteFail},
	}
}
