// Package xconf 基于 koanf 加载 YAML/JSON 配置，并把文件变更暴露为 xrx.Source。
//
// # 加载
//
//	cfg, err := xconf.New("xrxctl.yaml")
//	attempts := cfg.Client().Int("retry.attempts")
//
// Reload 串行执行，解析成功后原子替换内部 koanf 实例；
// Client() 返回的是快照，重载后旧快照仍可读但已过期。
//
// # 监视
//
// WatchSource 每次订阅创建一个 fsnotify 监视器：
//
//	s := xconf.WatchSource(cfg).Subscribe(xrx.Funcs[xconf.Reload]{
//		Next: func(r xconf.Reload) { ... },
//	})
//	defer s.Unsubscribe()
//
// 重载失败作为 Reload.Err 发射，流本身不会因此终止。
package xconf
