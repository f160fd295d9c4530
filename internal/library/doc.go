// Package library 将 feed 快照与本地文件系统对账：判断哪些安装包已落入规范库目录，
// 找出暂存目录中的待迁移文件并完成迁移，同时把条目元数据与媒体写入 metadata 子目录。
//
// 下载状态只由文件是否存在推导，从不持久化；每次 UpdateDownloadStatus 都全量重算。
package library
