package handler

import (
	"github.com/lucarp/todo/internal/share"
	"github.com/lucarp/todo/internal/task"
	"github.com/lucarp/todo/internal/user"
)

// ドメインサービスはhandlerのインターフェースを直接満たすため、
// 変換アダプタは持たずコンパイル時の適合チェックのみを行う。
// サービスのシグネチャ変更でハンドラーが壊れた場合はここで検出される。

var _ TaskServiceInterface = (*task.Service)(nil)
var _ MessageServiceInterface = (*share.Service)(nil)
var _ PublicServiceInterface = (*share.PublicService)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
