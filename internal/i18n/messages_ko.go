package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Korean

	message.SetString(lang, "status.backlog", "백로그")
	message.SetString(lang, "status.in_progress", "개발 중")
	message.SetString(lang, "status.ready_for_qa", "QA 요청")
	message.SetString(lang, "status.qa_done", "QA 완료")
	message.SetString(lang, "status.ready_for_deploy", "배포 승인")
	message.SetString(lang, "status.done", "배포 완료")

	message.SetString(lang, "reason.same_status", "동일한 상태로는 이동할 수 없습니다")
	message.SetString(lang, "reason.terminal_status", "완료된 카드는 이동할 수 없습니다")
	message.SetString(lang, "reason.invalid_status", "잘못된 상태입니다")
	message.SetString(lang, "reason.invalid_role", "잘못된 역할입니다")
	message.SetString(lang, "reason.skip_stage", "단계를 건너뛸 수 없습니다: %s -> %s")
	message.SetString(lang, "reason.permission_denied", "권한이 없습니다: %s 역할은 %s(으)로 이동할 수 없습니다")
	message.SetString(lang, "reason.product_owner_only", "권한이 없습니다. 프로덕트 오너만 배포 완료로 이동할 수 있습니다")
	message.SetString(lang, "reason.circular_dependency", "카드가 자기 자신에 의존할 수 없습니다: %s")
	message.SetString(lang, "reason.pending_dependencies", "의존성이 완료되지 않았습니다: %s")
	message.SetString(lang, "reason.insufficient_reviewers", "리뷰어가 부족합니다. 현재 %d명, 최소 %d명 필요")
	message.SetString(lang, "reason.wip_limit_exceeded", "WIP 제한을 초과합니다. %s 컬럼은 최대 %d개의 카드만 허용됩니다")

	message.SetString(lang, "suggest.pending_dependencies", "의존 카드를 먼저 완료하거나, 설정에서 의존성 검사를 비활성화하세요.")
	message.SetString(lang, "suggest.circular_dependency", "카드의 의존성 목록에서 자기 자신을 제거하세요.")
	message.SetString(lang, "suggest.insufficient_reviewers", "필요한 수만큼 리뷰어를 지정하거나, 설정에서 리뷰어 검사를 비활성화하세요.")
	message.SetString(lang, "suggest.product_owner_only", "프로덕트 오너로 전환하세요.")
	message.SetString(lang, "suggest.permission_denied", "적절한 권한을 가진 사용자로 전환하세요.")
	message.SetString(lang, "suggest.skip_stage", "한 단계씩 이동하거나, 보드 설정에서 단계 건너뛰기를 허용하세요.")
	message.SetString(lang, "suggest.wip_limit_exceeded", "대상 컬럼의 작업을 먼저 완료하거나 다른 컬럼으로 옮기세요.")

	message.SetString(lang, "notify.move_success.title", "카드 이동 완료")
	message.SetString(lang, "notify.move_success.body", "'%s'이(가) %s에서 %s(으)로 이동되었습니다")
	message.SetString(lang, "notify.move_failure.title", "카드 이동 실패")
	message.SetString(lang, "notify.rule_enabled.title", "%s가 활성화되었습니다")
	message.SetString(lang, "notify.rule_disabled.title", "%s가 비활성화되었습니다")
	message.SetString(lang, "notify.rule_reset.title", "규칙 설정 초기화")
	message.SetString(lang, "notify.rule_reset.body", "모든 규칙이 기본값으로 초기화되었습니다")
	message.SetString(lang, "notify.restore_failed.title", "설정 로드 실패")
	message.SetString(lang, "notify.restore_failed.body", "저장된 설정을 불러올 수 없어 기본값으로 초기화됩니다")
	message.SetString(lang, "notify.unknown_error", "알 수 없는 오류")

	message.SetString(lang, "rule.dependency.name", "의존성 검사")
	message.SetString(lang, "rule.dependency.description", "QA 요청 시 필수 의존성의 완료 여부를 검증합니다")
	message.SetString(lang, "rule.dependency.enabled", "필수 의존 카드가 QA 완료되어야만 QA 요청할 수 있습니다")
	message.SetString(lang, "rule.dependency.disabled", "의존성과 관계없이 QA 요청할 수 있습니다")
	message.SetString(lang, "rule.reviewer.name", "필수 리뷰어 검사")
	message.SetString(lang, "rule.reviewer.description", "QA 요청 전 최소 리뷰어 수를 검증합니다")
	message.SetString(lang, "rule.reviewer.enabled", "QA 요청 전 보드에 설정된 최소 리뷰어를 반드시 지정해야 합니다")
	message.SetString(lang, "rule.reviewer.disabled", "리뷰어 지정 없이도 QA 요청할 수 있습니다")
}
